package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"regbot/internal/domain"
)

var (
	askQuestion string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question",
	Long: `Run one question through the same pipeline the HTTP endpoint uses.

Examples:
  regbot ask -q "posso trancar a matrícula?"
  regbot ask -q "qual o prazo de defesa?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the endpoint JSON payload")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	p, err := newPipeline(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer p.Close()

	resp := p.queryUseCase(cfg).Answer(ctx, askQuestion)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func printResponse(resp domain.Response) {
	fmt.Println(resp.Answer)
	if len(resp.Retrieved) == 0 {
		return
	}

	fmt.Println()
	color.New(color.FgCyan).Println("Fragments:")
	for i, item := range resp.Retrieved {
		ref := "-"
		if item.Ref != nil {
			ref = *item.Ref
		}
		sim := "n/a"
		if item.Sim != nil {
			sim = fmt.Sprintf("%.3f", *item.Sim)
		}
		fmt.Printf("  %d. %s (sim %s)\n", i+1, ref, sim)
	}
}
