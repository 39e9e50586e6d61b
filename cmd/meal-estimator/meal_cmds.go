package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"meal-estimator/internal/app"
	"meal-estimator/internal/estimate"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
)

var (
	scanHint    string
	mealType    string
	answers     []string
	excludeNums []int
	logMeal     bool
	dryRun      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Estimate a meal from a photo",
	Long: `Scan a meal photo and print the detected items, totals and calorie range.

Refine the estimate with --exclude and --answer, then add --log to save it:

  meal-estimator scan lunch.jpg --answer oil_used=normal --exclude 3 --log`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		mimeType := http.DetectContentType(image)
		if !strings.HasPrefix(mimeType, "image/") {
			return fmt.Errorf("%s is not an image (%s)", args[0], mimeType)
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		s := rt.App.NewSession(userID)
		view, err := rt.App.ScanMeal(cmd.Context(), userID, s, image, mimeType, scanHint)
		problems, ok := app.ItemProblems(err)
		if !ok || (err != nil && view.ItemCount == 0) {
			return err
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", p)
		}

		for _, n := range excludeNums {
			items := s.Items()
			if n < 1 || n > len(items) {
				return fmt.Errorf("no item number %d", n)
			}
			if items[n-1].Included {
				if _, err := s.ToggleInclude(items[n-1].ID); err != nil {
					return err
				}
			}
		}
		return finish(cmd, rt, s, logMeal)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <food amount>...",
	Short: "Log a meal from foods and amounts",
	Long: `Look up each food and log them together as one meal. Each argument is a
food name followed by an amount, or a recipe/product URL followed by an amount:

  meal-estimator add "greek yogurt 170g" "granola 40g" "blueberries 0.5 cup"
  meal-estimator add "https://example.com/pancakes 2 serving"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		s := rt.App.NewSession(userID)
		for _, arg := range args {
			if err := addFood(cmd, rt.App, s, arg); err != nil {
				return err
			}
		}
		return finish(cmd, rt, s, !dryRun)
	},
}

func addFood(cmd *cobra.Command, a *app.App, s *session.Session, arg string) error {
	fields := strings.Fields(arg)
	if len(fields) > 0 && (strings.HasPrefix(fields[0], "http://") || strings.HasPrefix(fields[0], "https://")) {
		portion := nutrition.Portion{Quantity: 1, Unit: nutrition.UnitServing}
		if len(fields) > 1 {
			p, err := nutrition.ParsePortion(strings.Join(fields[1:], " "))
			if err != nil {
				return err
			}
			portion = p
		}
		entry, _, err := a.AddFromURL(cmd.Context(), s, fields[0], portion)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "+ %s (%s)\n", entry.DisplayName(), portion)
		return nil
	}

	query, portion, err := nutrition.SplitPortion(arg)
	if err != nil {
		return err
	}
	entry, _, err := a.AddFromQuery(cmd.Context(), s, query, portion)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "+ %s (%s, %s)\n", entry.DisplayName(), portion, entry.Provider)
	return nil
}

// finish applies the shared meal flags, prints the meal and optionally logs it.
func finish(cmd *cobra.Command, rt *app.Runtime, s *session.Session, save bool) error {
	if mealType != "" {
		mt, err := session.ParseMealType(mealType)
		if err != nil {
			return err
		}
		if _, err := s.SetMealType(mt); err != nil {
			return err
		}
	}
	for _, a := range answers {
		key, option, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("answer %q must look like key=option", a)
		}
		if _, err := s.SetAnswer(estimate.QuestionKey(key), option); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	printMeal(out, s.View(), s.Items(), s.Answers())
	if !save {
		return nil
	}

	rec, err := rt.App.LogMeal(cmd.Context(), userID, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nLogged meal #%d (%s, %d kcal).\n", rec.MealID, rec.MealType, rec.Totals.Calories)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, addCmd} {
		c.Flags().StringVarP(&mealType, "type", "t", "", "Meal type: breakfast, lunch, snack or dinner (default by time of day)")
		c.Flags().StringArrayVarP(&answers, "answer", "a", nil, "Answer a follow-up question, e.g. oil_used=\"a little\"")
	}
	scanCmd.Flags().StringVar(&scanHint, "hint", "", "Describe the meal to help the scanner")
	scanCmd.Flags().IntSliceVarP(&excludeNums, "exclude", "x", nil, "Item numbers to leave out")
	scanCmd.Flags().BoolVar(&logMeal, "log", false, "Log the meal after scanning")
	addCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the meal without logging it")
}
