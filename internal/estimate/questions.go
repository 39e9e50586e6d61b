package estimate

import (
	"fmt"
	"slices"

	"meal-estimator/internal/nutrition"
)

// QuestionKey identifies a follow-up question.
type QuestionKey string

const (
	QuestionOilUsed     QuestionKey = "oil_used"
	QuestionSauceAmount QuestionKey = "sauce_amount"
)

// Answer options.
const (
	OptionNone    = "none"
	OptionALittle = "a little"
	OptionNormal  = "normal"
	OptionALot    = "a lot"
	OptionLight   = "light"
	OptionHeavy   = "heavy"
)

// Question is a clarifying prompt whose answer narrows the calorie range.
type Question struct {
	Key     QuestionKey `json:"key"`
	Prompt  string      `json:"prompt"`
	Options []string    `json:"options"`
}

// Answers maps a question to the option the user picked.
type Answers map[QuestionKey]string

// Clone copies the answers map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

var (
	oilQuestion = Question{
		Key:     QuestionOilUsed,
		Prompt:  "How much oil or butter was used in cooking?",
		Options: []string{OptionNone, OptionALittle, OptionNormal, OptionALot},
	}
	sauceQuestion = Question{
		Key:     QuestionSauceAmount,
		Prompt:  "How much sauce or dressing?",
		Options: []string{OptionNone, OptionLight, OptionNormal, OptionHeavy},
	}
)

// Lookup returns the catalog entry for key.
func Lookup(key QuestionKey) (Question, bool) {
	switch key {
	case QuestionOilUsed:
		return cloneQuestion(oilQuestion), true
	case QuestionSauceAmount:
		return cloneQuestion(sauceQuestion), true
	}
	return Question{}, false
}

// ValidateAnswer checks that option is one of the declared options for key.
func ValidateAnswer(key QuestionKey, option string) error {
	q, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("unknown question %q", key)
	}
	if !slices.Contains(q.Options, option) {
		return fmt.Errorf("option %q is not allowed for %s", option, key)
	}
	return nil
}

// QuestionsFor returns the questions worth asking for the included items,
// oil first.
func QuestionsFor(items []nutrition.FoodItem) []Question {
	c := conditionsOf(items)

	var out []Question
	if c.oil {
		out = append(out, cloneQuestion(oilQuestion))
	}
	if c.sauce {
		out = append(out, cloneQuestion(sauceQuestion))
	}
	return out
}

func cloneQuestion(q Question) Question {
	q.Options = slices.Clone(q.Options)
	return q
}

// conditions records which risk conditions appear among included items.
// Presence is boolean per condition, never per occurrence.
type conditions struct {
	oil        bool
	sauce      bool
	mixed      bool
	restaurant bool
	fried      bool
}

func conditionsOf(items []nutrition.FoodItem) conditions {
	var c conditions
	for _, it := range items {
		if !it.Included {
			continue
		}
		f := it.Flags
		c.oil = c.oil || f.HasAny(nutrition.FlagPossibleOil, nutrition.FlagFried)
		c.sauce = c.sauce || f.HasAny(nutrition.FlagPossibleSauce, nutrition.FlagPossibleDressing, nutrition.FlagCreamy)
		c.mixed = c.mixed || f.Has(nutrition.FlagMixedDish)
		c.restaurant = c.restaurant || f.Has(nutrition.FlagRestaurantLike)
		c.fried = c.fried || f.Has(nutrition.FlagFried)
	}
	return c
}
