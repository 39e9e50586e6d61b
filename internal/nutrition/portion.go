package nutrition

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is a portion measure.
type Unit string

const (
	UnitGrams   Unit = "grams"
	UnitCups    Unit = "cups"
	UnitTbsp    Unit = "tbsp"
	UnitTsp     Unit = "tsp"
	UnitPieces  Unit = "pieces"
	UnitOz      Unit = "oz"
	UnitMl      Unit = "ml"
	UnitServing Unit = "serving"
)

// Gram equivalents for fixed measures. Volumes assume the density of water.
var gramsPerUnit = map[Unit]float64{
	UnitGrams: 1,
	UnitOz:    28.349523125,
	UnitMl:    1,
	UnitTsp:   4.92892159375,
	UnitTbsp:  14.78676478125,
	UnitCups:  236.5882365,
}

var unitAliases = map[string]Unit{
	"g":        UnitGrams,
	"gram":     UnitGrams,
	"grams":    UnitGrams,
	"cup":      UnitCups,
	"cups":     UnitCups,
	"tbsp":     UnitTbsp,
	"tsp":      UnitTsp,
	"piece":    UnitPieces,
	"pieces":   UnitPieces,
	"pc":       UnitPieces,
	"oz":       UnitOz,
	"ml":       UnitMl,
	"serving":  UnitServing,
	"servings": UnitServing,
}

// ParseUnit resolves a unit name, accepting common singular/short forms.
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported unit %q", s)
	}
	return u, nil
}

// Portion is a requested quantity of food.
type Portion struct {
	Quantity float64 `json:"quantity"`
	Unit     Unit    `json:"unit"`
}

// Validate checks the quantity is finite and positive and the unit is known.
func (p Portion) Validate() error {
	if math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) || p.Quantity <= 0 {
		return fmt.Errorf("portion quantity must be a positive number, got %v", p.Quantity)
	}
	if _, err := ParseUnit(string(p.Unit)); err != nil {
		return err
	}
	return nil
}

// Grams converts the portion to a gram weight. Pieces and servings have no
// fixed weight and need a per-food preset keyed by unit. Unit aliases such as
// "g" resolve to their canonical unit first.
func (p Portion) Grams(presets map[Unit]float64) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	unit, _ := ParseUnit(string(p.Unit))
	if w, ok := presets[unit]; ok && w > 0 {
		return p.Quantity * w, nil
	}
	if w, ok := gramsPerUnit[unit]; ok {
		return p.Quantity * w, nil
	}
	return 0, fmt.Errorf("no gram weight known for unit %q", p.Unit)
}

var amountPattern = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*([A-Za-z]*)$`)

// ParsePortion reads an amount such as "150g", "2 cups" or "1,5 tbsp". A bare
// number is grams.
func ParsePortion(s string) (Portion, error) {
	m := amountPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Portion{}, fmt.Errorf("invalid amount %q", s)
	}
	q, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return Portion{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	unit := UnitGrams
	if m[2] != "" {
		if unit, err = ParseUnit(m[2]); err != nil {
			return Portion{}, err
		}
	}
	p := Portion{Quantity: q, Unit: unit}
	return p, p.Validate()
}

// SplitPortion separates a trailing amount from a food description, as in
// "greek yogurt 170g" or "oats 1 cup".
func SplitPortion(text string) (string, Portion, error) {
	fields := strings.Fields(text)
	for n := 2; n >= 1; n-- {
		if len(fields) <= n {
			continue
		}
		if p, err := ParsePortion(strings.Join(fields[len(fields)-n:], " ")); err == nil {
			return strings.Join(fields[:len(fields)-n], " "), p, nil
		}
	}
	return "", Portion{}, fmt.Errorf("add an amount such as 150g after %q", strings.TrimSpace(text))
}

func (p Portion) String() string {
	return fmt.Sprintf("%s %s", trimFloat(p.Quantity), p.Unit)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
