package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"meal-estimator/internal/app"
	"meal-estimator/internal/estimate"
	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/meal"
	"meal-estimator/internal/metrics"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
)

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

func printMeal(w io.Writer, v session.View, items []nutrition.FoodItem, answers estimate.Answers) {
	fmt.Fprintf(w, "\n%s, %d of %d items\n\n", v.MealType, v.IncludedCount, v.ItemCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tITEM\tGRAMS\tKCAL\tCONF\tSOURCE\tFLAGS")
	for i, it := range items {
		mark := ""
		if !it.Included {
			mark = " (excluded)"
		}
		flags := make([]string, 0, len(it.Flags))
		for _, f := range it.Flags.Sorted() {
			flags = append(flags, string(f))
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%.0f\t%.0f\t%.0f%%\t%s\t%s\n",
			i+1, it.Name, mark, it.Grams, it.Calculated.Calories, it.Confidence*100, it.Source, strings.Join(flags, ","))
	}
	tw.Flush()

	t := v.Totals
	fmt.Fprintf(w, "\nTotal: %d kcal", t.Calories)
	if v.Range.Max > v.Range.Min {
		fmt.Fprintf(w, " (likely %d-%d)", v.Range.Min, v.Range.Max)
	}
	fmt.Fprintf(w, "\nProtein %.1fg, carbs %.1fg, fat %.1fg, fiber %.1fg\n", t.ProteinG, t.CarbsG, t.FatG, t.FiberG)
	fmt.Fprintf(w, "Confidence: %.0f%%\n", v.Confidence*100)

	for _, q := range v.Questions {
		fmt.Fprintf(w, "\n? %s [--answer %s=<%s>]", q.Prompt, q.Key, strings.Join(q.Options, "|"))
		if a, ok := answers[q.Key]; ok {
			fmt.Fprintf(w, " answered: %s", a)
		}
	}
	if len(v.Questions) > 0 {
		fmt.Fprintln(w)
	}
}

func printEntries(w io.Writer, entries []fooddb.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FOOD\tKCAL/100G\tP\tC\tF\tPORTIONS\tSOURCE")
	for _, e := range entries {
		var portions []string
		for u, g := range e.Portions {
			portions = append(portions, fmt.Sprintf("1 %s=%.0fg", u, g))
		}
		n := e.Nutrition
		fmt.Fprintf(tw, "%s\t%.0f\t%.1f\t%.1f\t%.1f\t%s\t%s\n",
			e.DisplayName(), n.Calories, n.ProteinG, n.CarbsG, n.FatG, strings.Join(portions, " "), e.Provider)
	}
	tw.Flush()
}

func printHistory(w io.Writer, meals []meal.Meal) {
	if len(meals) == 0 {
		fmt.Fprintln(w, "No meals logged yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tKCAL\tRANGE\tITEMS")
	for _, m := range meals {
		names := make([]string, 0, len(m.Items))
		for _, it := range m.Items {
			names = append(names, it.Name)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d-%d\t%s\n",
			m.ID, m.LoggedAt.Local().Format("Jan 2 15:04"), m.MealType, m.Totals.Calories, m.Range.Min, m.Range.Max, strings.Join(names, ", "))
	}
	tw.Flush()
}

func printSummary(w io.Writer, sum app.DaySummary) {
	fmt.Fprintf(w, "%s\n\n", sum.Day.Format("Monday, Jan 2 2006"))
	printHistory(w, sum.Meals)

	t, g := sum.Totals, sum.Goals
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tEATEN\tGOAL\tLEFT")
	fmt.Fprintf(tw, "Calories\t%d\t%d\t%d\n", t.Calories, g.Calories, sum.Remaining.Calories)
	fmt.Fprintf(tw, "Protein (g)\t%.1f\t%.1f\t%.1f\n", t.ProteinG, g.ProteinG, sum.Remaining.ProteinG)
	fmt.Fprintf(tw, "Carbs (g)\t%.1f\t%.1f\t%.1f\n", t.CarbsG, g.CarbsG, sum.Remaining.CarbsG)
	fmt.Fprintf(tw, "Fat (g)\t%.1f\t%.1f\t%.1f\n", t.FatG, g.FatG, sum.Remaining.FatG)
	tw.Flush()
}

func printMetrics(w io.Writer, usage []metrics.DailyUsage, dataPaths ...string) {
	fmt.Fprintln(w, "Model usage")
	if len(usage) == 0 {
		fmt.Fprintln(w, "  no data yet")
	}
	for _, d := range usage {
		fmt.Fprintf(w, "  %s: %d prompt + %d completion tokens (%d calls)\n", d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
	}

	h := metrics.GetSysHealth(dataPaths...)
	fmt.Fprintf(w, "\nSystem\n  RAM: %dMB alloc / %dMB sys\n  Goroutines: %d\n  Data on disk: %s\n", h.AllocMB, h.SysMB, h.Goroutines, h.DataDiskSize)
}
