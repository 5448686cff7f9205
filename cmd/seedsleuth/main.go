package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"seedsleuth/config"
)

const version = "0.3.1"

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "seedsleuth",
	Short: "seedsleuth - recover a 12-word wallet sentence from partial knowledge",
	Long: `seedsleuth reconstructs a 12-word recovery sentence from the fragments
its owner still remembers: rough word lengths, syllable counts, rhymes,
and themes per position.

The pipeline filters the 2048-word dictionary per position, ranks
candidate sentences with a score-guided beam search over the
checksum-valid space, and verifies the best candidates in parallel by
deriving addresses across the four common standards and querying a
balance oracle. Progress survives restarts through checkpoint files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version needs neither config nor logger
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		if cfg.Logging.Development {
			zcfg = zap.NewDevelopmentConfig()
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("failed to parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(parsed)

		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seedsleuth version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seedsleuth %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(enumerateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
