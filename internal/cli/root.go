package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"regbot/config"
	"regbot/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	appLog  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "regbot",
	Short: "Answer questions about the FACOM regulation from its indexed fragments",
	Long: `regbot answers questions about an academic regulation. It retrieves the
most similar regulation fragments from a vector index, asks a generative model
for a grounded answer and falls back to quoting the fragments when the model
is unavailable.

Example usage:
  regbot serve                          # Serve POST /query on :8000
  regbot ask -q "posso trancar a matrícula?"
  regbot retrieve -q "prazo de defesa" --top-k 10
  regbot factscore                      # Score answers against the corpus`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadDotEnv(rootDir); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			return fmt.Errorf("failed to apply environment: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		appLog = logger.New(os.Stderr, cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./regbot.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// resolvePath makes a relative config path relative to the root directory.
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
