package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"meal-estimator/internal/app"
	"meal-estimator/internal/estimate"
	"meal-estimator/internal/meal"
	"meal-estimator/internal/metrics"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
)

const helpText = `🍽 *Meal Estimator*

📸 Send a photo of your meal to scan it (add a caption to describe it).
✍️ Add food by name: ` + "`greek yogurt 170g`" + `
🔗 Add from a recipe or product page: ` + "`https://... 1 serving`" + `

*Commands*
/grams <n> <amount> - change the weight of item n
/remove <n> - remove item n
/type <breakfast|lunch|snack|dinner> - set the meal type
/log - log the pending meal
/cancel - discard the pending meal
/today - today's totals against your goals
/history - your last meals`

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatCard renders the pending meal.
func formatCard(v session.View, items []nutrition.FoodItem, notes []string) string {
	var sb strings.Builder
	if v.ItemCount == 0 {
		sb.WriteString("🍽 *No items yet*\nSend a photo or type a food like `banana 120g`.")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("🍽 *%s* · %d of %d items\n\n", title(string(v.MealType)), v.IncludedCount, v.ItemCount))
	for i, it := range items {
		mark := "✅"
		if !it.Included {
			mark = "⬜"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s, %sg · %.0f kcal", mark, i+1, escape(it.Name), trimFloat(it.Grams), it.Calculated.Calories))
		if it.Source == nutrition.SourceAI && it.Nutrition.IsZero() {
			sb.WriteString(" ⚠️")
		}
		sb.WriteString("\n")
	}

	t := v.Totals
	sb.WriteString(fmt.Sprintf("\n🔥 *%d kcal*", t.Calories))
	if v.Range.Max > v.Range.Min {
		sb.WriteString(fmt.Sprintf(" (likely %d-%d)", v.Range.Min, v.Range.Max))
	}
	sb.WriteString(fmt.Sprintf("\nP %sg · C %sg · F %sg\n", trimFloat(t.ProteinG), trimFloat(t.CarbsG), trimFloat(t.FatG)))
	sb.WriteString(fmt.Sprintf("🎯 Confidence: %.0f%%\n", v.Confidence*100))

	for _, q := range v.Questions {
		sb.WriteString(fmt.Sprintf("\n❓ %s", escape(q.Prompt)))
	}
	for _, n := range notes {
		sb.WriteString(fmt.Sprintf("\n⚠️ %s", escape(n)))
	}
	return sb.String()
}

// cardKeyboard builds the buttons under a pending meal card. It returns nil
// for an empty meal.
func cardKeyboard(v session.View, items []nutrition.FoodItem, answers estimate.Answers) *tgbotapi.InlineKeyboardMarkup {
	if v.ItemCount == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, it := range items {
		mark := "✅"
		if !it.Included {
			mark = "⬜"
		}
		label := fmt.Sprintf("%s %d. %s", mark, i+1, shorten(it.Name, 18))
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, actionToggle+"|"+it.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	for _, q := range v.Questions {
		var opts []tgbotapi.InlineKeyboardButton
		for _, o := range q.Options {
			label := o
			if answers[q.Key] == o {
				label = "• " + o
			}
			opts = append(opts, tgbotapi.NewInlineKeyboardButtonData(label, actionAnswer+"|"+string(q.Key)+"|"+o))
		}
		rows = append(rows, opts)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📝 Log %d kcal", v.Totals.Calories), actionLog+"|"),
		tgbotapi.NewInlineKeyboardButtonData("🗑 Discard", actionDiscard+"|"),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func formatLogged(rec session.MealRecord) string {
	return fmt.Sprintf("✅ *%s logged!*\n\n🔥 *%d kcal* (likely %d-%d)\nP %sg · C %sg · F %sg\n%d items · confidence %.0f%%",
		title(string(rec.MealType)), rec.Totals.Calories, rec.Range.Min, rec.Range.Max,
		trimFloat(rec.Totals.ProteinG), trimFloat(rec.Totals.CarbsG), trimFloat(rec.Totals.FatG),
		len(rec.Items), rec.Confidence*100)
}

func formatSummary(sum app.DaySummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *%s*\n\n", sum.Day.Format("Monday, Jan 2")))
	if len(sum.Meals) == 0 {
		sb.WriteString("_No meals logged yet_\n")
	}
	for _, m := range sum.Meals {
		sb.WriteString(fmt.Sprintf("• %s %s: %d kcal\n", m.LoggedAt.In(sum.Day.Location()).Format("15:04"), title(string(m.MealType)), m.Totals.Calories))
	}

	t := sum.Totals
	sb.WriteString(fmt.Sprintf("\n🔥 *%d kcal*", t.Calories))
	if sum.Goals.Calories > 0 {
		sb.WriteString(fmt.Sprintf(" of %d (%d left)", sum.Goals.Calories, sum.Remaining.Calories))
	}
	sb.WriteString("\n")
	sb.WriteString(macroLine("Protein", t.ProteinG, sum.Goals.ProteinG))
	sb.WriteString(macroLine("Carbs", t.CarbsG, sum.Goals.CarbsG))
	sb.WriteString(macroLine("Fat", t.FatG, sum.Goals.FatG))
	return sb.String()
}

func macroLine(name string, got, goal float64) string {
	if goal > 0 {
		return fmt.Sprintf("%s: %sg / %sg\n", name, trimFloat(got), trimFloat(goal))
	}
	return fmt.Sprintf("%s: %sg\n", name, trimFloat(got))
}

func formatHistory(meals []meal.Meal) string {
	if len(meals) == 0 {
		return "_No meals logged yet_"
	}
	var sb strings.Builder
	sb.WriteString("🗂 *Recent meals*\n\n")
	for _, m := range meals {
		names := make([]string, 0, len(m.Items))
		for _, it := range m.Items {
			names = append(names, it.Name)
		}
		sb.WriteString(fmt.Sprintf("• %s *%s*: %d kcal\n  _%s_\n",
			m.LoggedAt.Format("Jan 2 15:04"), title(string(m.MealType)), m.Totals.Calories, escape(shorten(strings.Join(names, ", "), 60))))
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func formatError(action string, err error) string {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr)
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
