package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"regbot/internal/adapter/fs"
	"regbot/internal/adapter/httpapi"
	"regbot/internal/adapter/report"
	"regbot/internal/usecase"
)

var (
	factscoreAPIURL    string
	factscoreChunks    string
	factscoreQuestions string
	factscoreOut       string
)

var factscoreCmd = &cobra.Command{
	Use:   "factscore",
	Short: "Score how well answers are supported by their fragments",
	Long: `Ask every question of the questions file to a running query endpoint,
rebuild the context from the chunk corpus using the returned references and
ask the judge model for a support score between 0 and 1.

Questions run one at a time. A question whose query call fails is skipped.
Results are written as CSV and the mean score is printed.

Examples:
  regbot factscore
  regbot factscore --questions "eval/*.txt" --out eval/results.csv`,
	RunE: runFactScore,
}

func init() {
	rootCmd.AddCommand(factscoreCmd)
	factscoreCmd.Flags().StringVar(&factscoreAPIURL, "api-url", "", "query endpoint URL (default from config)")
	factscoreCmd.Flags().StringVar(&factscoreChunks, "chunks", "", "chunk corpus JSONL (default from config)")
	factscoreCmd.Flags().StringVar(&factscoreQuestions, "questions", "", "questions file or glob (default from config)")
	factscoreCmd.Flags().StringVarP(&factscoreOut, "out", "o", "", "output CSV (default from config)")
}

func runFactScore(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	fc := cfg.FactScore
	if factscoreAPIURL != "" {
		fc.APIURL = factscoreAPIURL
	}
	if factscoreChunks != "" {
		fc.ChunksPath = factscoreChunks
	}
	if factscoreQuestions != "" {
		fc.QuestionsPath = factscoreQuestions
	}
	if factscoreOut != "" {
		fc.OutputPath = factscoreOut
	}

	corpus, err := fs.LoadChunks(resolvePath(fc.ChunksPath))
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	appLog.Info("chunks loaded", "count", len(corpus), "path", fc.ChunksPath)

	questions, err := fs.LoadQuestions(resolvePath(fc.QuestionsPath))
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	appLog.Info("questions loaded", "count", len(questions), "path", fc.QuestionsPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httpapi.NewClient(fc.APIURL, httpapi.DefaultClientTimeout)
	uc := usecase.NewFactScoreUseCase(client, buildJudge(cfg.Generation), corpus, appLog)

	if len(questions) > 0 {
		bar := progressbar.NewOptions(len(questions),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Scoring[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
			progressbar.OptionSetWriter(os.Stderr),
		)
		uc.OnProgress(func(done, total int) {
			bar.Set(done)
		})
	}

	result := uc.Run(ctx, questions)

	out := resolvePath(fc.OutputPath)
	if err := report.WriteCSV(out, result.Rows); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	mean, ok := result.Mean()
	if !ok {
		color.New(color.FgYellow).Println("No results produced.")
		return nil
	}

	fmt.Printf("Mean fact score: %.3f\n", mean)
	fmt.Printf("Scored %d of %d questions (%d skipped)\n", len(result.Rows), len(questions), result.Skipped)
	fmt.Printf("Results saved to: %s\n", out)
	return nil
}
