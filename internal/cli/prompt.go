package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"regbot/internal/usecase"
)

var (
	promptQuestion   string
	promptExtractive bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt sent to the generative model",
	Long: `Retrieve fragments for a question and print the prompt the generative
model would receive, for manual orchestration or debugging.

Use --extractive to print the answer used when the model is unavailable.

Examples:
  regbot prompt -q "posso trancar a matrícula?"
  regbot prompt -q "posso trancar a matrícula?" --extractive`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuestion, "question", "q", "", "question (required)")
	promptCmd.Flags().BoolVar(&promptExtractive, "extractive", false, "print the extractive answer instead")
	promptCmd.MarkFlagRequired("question")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	p, err := newPipeline(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.retriever(cfg.Retrieve.TopK, cfg.Retrieve.SimilarityThreshold).Retrieve(ctx, promptQuestion)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if result.Empty() {
		return fmt.Errorf("no fragment reached similarity %.2f; the question would get the fallback message", cfg.Retrieve.SimilarityThreshold)
	}

	if promptExtractive {
		fmt.Println(usecase.BuildExtractiveAnswer(promptQuestion, result.Texts()))
		return nil
	}

	prompt, err := p.composer(cfg).BuildGenerativePrompt(promptQuestion, result.Texts())
	if err != nil {
		return err
	}
	fmt.Print(prompt)
	return nil
}
