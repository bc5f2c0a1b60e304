package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"regbot/internal/domain"
)

var (
	retrieveQuestion  string
	retrieveTopK      int
	retrieveThreshold float64
	retrieveJSON      bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Show the fragments retrieved for a question",
	Long: `Run retrieval only and print the fragments that pass the similarity gate.

The gate is all-or-nothing: when the best fragment is below the threshold
nothing is returned.

Examples:
  regbot retrieve -q "trancamento de matrícula"
  regbot retrieve -q "prazo de defesa" --top-k 10 --threshold 0.3 --json`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVarP(&retrieveQuestion, "question", "q", "", "question (required)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of fragments (default from config)")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", -1, "similarity threshold (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
	retrieveCmd.MarkFlagRequired("question")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	topK := cfg.Retrieve.TopK
	if retrieveTopK > 0 {
		topK = retrieveTopK
	}
	threshold := cfg.Retrieve.SimilarityThreshold
	if retrieveThreshold >= 0 {
		threshold = retrieveThreshold
	}

	p, err := newPipeline(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer p.Close()

	if !p.indexAvailable() {
		return fmt.Errorf("index unavailable: check index.path and index.collection")
	}

	result, err := p.retriever(topK, threshold).Retrieve(ctx, retrieveQuestion)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		refs := make([]domain.RetrievedRef, len(result.Fragments))
		for i, f := range result.Fragments {
			refs[i] = domain.NewRetrievedRef(f)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}

	if result.Empty() {
		color.New(color.FgYellow).Printf("No fragment reached similarity %.2f\n", threshold)
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	for i, f := range result.Fragments {
		sim := "n/a"
		if f.Similarity != nil {
			sim = fmt.Sprintf("%.3f", *f.Similarity)
		}
		header.Printf("%d. %s  sim=%s\n", i+1, f.Ref, sim)
		fmt.Println(indent(f.Text, "   "))
		fmt.Println()
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
