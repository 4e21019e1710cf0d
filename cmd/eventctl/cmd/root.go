package cmd

import (
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "eventctl",
		Short: "Operator tooling for the event service",
		Long: `eventctl works against the same database and Kafka topic as the event service.

Examples:
  # Insert the sample events, wiping existing rows first
  eventctl seed --reset

  # Follow lifecycle messages of event 42
  eventctl tail --event-id 42`,
		SilenceUsage: true,
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: LOG_LEVEL or info)")
}

// loadConfig reads .env (if present) and the environment, and builds a console logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger) {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewConsoleLogger(cmd.ErrOrStderr())
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log.SetLevel(logger.ParseLevel(level))
	return cfg, log
}
