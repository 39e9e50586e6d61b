package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"meal-estimator/internal/database"
	"meal-estimator/internal/meal"
)

var (
	historyLimit int
	summaryDate  string
	goals        meal.Goals
	metricsDays  int
	cleanupDays  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the food databases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		entries, err := rt.App.Search(cmd.Context(), joinArgs(args))
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently logged meals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		meals, err := rt.App.History(cmd.Context(), userID, historyLimit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), meals)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <meal-id>",
	Short: "Delete a logged meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid meal id %q", args[0])
		}
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		m, err := rt.Meals.Get(cmd.Context(), userID, id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("meal %d not found", id)
		}
		if err := rt.App.DeleteMeal(cmd.Context(), userID, *m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted meal #%d.\n", id)
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the day's totals against your goals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now()
		if summaryDate != "" {
			var err error
			day, err = time.ParseInLocation("2006-01-02", summaryDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", summaryDate, err)
			}
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		sum, err := rt.App.Summary(cmd.Context(), userID, day)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage daily nutrition goals",
}

var goalsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set your daily goals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		current, err := rt.App.Goals(cmd.Context(), userID)
		if err != nil {
			return err
		}
		g := mergeGoals(cmd, current, goals)
		if err := rt.App.SetGoals(cmd.Context(), userID, g); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Goals saved: %d kcal, %gg protein, %gg carbs, %gg fat.\n",
			g.Calories, g.ProteinG, g.CarbsG, g.FatG)
		return nil
	},
}

func addGoalFlags(c *cobra.Command, g *meal.Goals) {
	c.Flags().IntVar(&g.Calories, "calories", 0, "Daily calories")
	c.Flags().Float64Var(&g.ProteinG, "protein", 0, "Daily protein in grams")
	c.Flags().Float64Var(&g.CarbsG, "carbs", 0, "Daily carbs in grams")
	c.Flags().Float64Var(&g.FatG, "fat", 0, "Daily fat in grams")
}

// mergeGoals overrides current with only the goal flags given on the command line.
func mergeGoals(cmd *cobra.Command, current, flags meal.Goals) meal.Goals {
	if cmd.Flags().Changed("calories") {
		current.Calories = flags.Calories
	}
	if cmd.Flags().Changed("protein") {
		current.ProteinG = flags.ProteinG
	}
	if cmd.Flags().Changed("carbs") {
		current.CarbsG = flags.CarbsG
	}
	if cmd.Flags().Changed("fat") {
		current.FatG = flags.FatG
	}
	return current
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show model usage and system health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		usage, err := rt.Metrics.GetDailyUsage(cmd.Context(), metricsDays)
		if err != nil {
			return err
		}
		printMetrics(cmd.OutOrStdout(), usage, cfg.DatabasePath, cfg.PhotoStoragePath)
		return nil
	},
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete usage records older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.Metrics.Cleanup(cmd.Context(), cleanupDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d usage records.\n", n)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.RunMigrations(cfg.DatabasePath, logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of meals to show")
	todayCmd.Flags().StringVar(&summaryDate, "date", "", "Day to summarize (YYYY-MM-DD, default today)")

	addGoalFlags(goalsSetCmd, &goals)
	goalsCmd.AddCommand(goalsSetCmd)

	metricsCmd.Flags().IntVar(&metricsDays, "days", 7, "Number of days to report")
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records from this many days")
	metricsCmd.AddCommand(metricsCleanupCmd)
}
