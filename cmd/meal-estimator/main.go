// Command meal-estimator scans meal photos, looks up foods and keeps a log of
// meals from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meal-estimator/internal/app"
	"meal-estimator/internal/config"
)

var (
	userID  string
	envFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meal-estimator",
	Short: "Estimate and log the nutrition of your meals",
	Long: `meal-estimator turns a meal photo or a list of foods into calorie and
macro totals with a likely calorie range, and keeps a daily log.

Configuration comes from the environment (and an optional .env file):
GEMINI_API_KEY is required; see the README for the rest.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.NewFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = config.NewLogger(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openRuntime wires the application for commands that need it.
func openRuntime(ctx context.Context) (*app.Runtime, error) {
	return app.Open(ctx, cfg, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "local", "User whose meals to read and write")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(scanCmd, addCmd, searchCmd, historyCmd, deleteCmd, todayCmd, goalsCmd, metricsCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
