package nutrition

import (
	"math"
	"testing"
)

func TestPortionGrams(t *testing.T) {
	tests := []struct {
		name    string
		portion Portion
		presets map[Unit]float64
		want    float64
		wantErr bool
	}{
		{name: "Grams", portion: Portion{Quantity: 150, Unit: UnitGrams}, want: 150},
		{name: "Ounces", portion: Portion{Quantity: 2, Unit: UnitOz}, want: 56.69904625},
		{name: "Cup", portion: Portion{Quantity: 1, Unit: UnitCups}, want: 236.5882365},
		{name: "PiecesWithPreset", portion: Portion{Quantity: 2, Unit: UnitPieces}, presets: map[Unit]float64{UnitPieces: 50}, want: 100},
		{name: "PresetOverridesVolume", portion: Portion{Quantity: 1, Unit: UnitCups}, presets: map[Unit]float64{UnitCups: 195}, want: 195},
		{name: "GramAlias", portion: Portion{Quantity: 150, Unit: "g"}, want: 150},
		{name: "PieceAliasUsesPreset", portion: Portion{Quantity: 3, Unit: "Piece"}, presets: map[Unit]float64{UnitPieces: 40}, want: 120},
		{name: "PiecesWithoutPreset", portion: Portion{Quantity: 2, Unit: UnitPieces}, wantErr: true},
		{name: "ZeroQuantity", portion: Portion{Quantity: 0, Unit: UnitGrams}, wantErr: true},
		{name: "InfiniteQuantity", portion: Portion{Quantity: math.Inf(1), Unit: UnitGrams}, wantErr: true},
		{name: "UnknownUnit", portion: Portion{Quantity: 1, Unit: "bucket"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.portion.Grams(tt.presets)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %v grams", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %v grams, got %v", tt.want, got)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"g": UnitGrams, " Cup ": UnitCups, "piece": UnitPieces} {
		got, err := ParseUnit(in)
		if err != nil {
			t.Fatalf("ParseUnit(%q) returned error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseUnit(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseUnit("handful"); err == nil {
		t.Error("Expected an error for unknown unit")
	}
}

func TestSplitPortion(t *testing.T) {
	tests := []struct {
		in        string
		wantQuery string
		want      Portion
		wantErr   bool
	}{
		{in: "greek yogurt 170g", wantQuery: "greek yogurt", want: Portion{Quantity: 170, Unit: UnitGrams}},
		{in: "oats 1 cup", wantQuery: "oats", want: Portion{Quantity: 1, Unit: UnitCups}},
		{in: "olive oil 1,5 tbsp", wantQuery: "olive oil", want: Portion{Quantity: 1.5, Unit: UnitTbsp}},
		{in: "banana 2 pieces", wantQuery: "banana", want: Portion{Quantity: 2, Unit: UnitPieces}},
		{in: "rice 200", wantQuery: "rice", want: Portion{Quantity: 200, Unit: UnitGrams}},
		{in: "rice", wantErr: true},
		{in: "150g", wantErr: true},
		{in: "soup 2 handfuls", wantErr: true},
		{in: "rice 0g", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, p, err := SplitPortion(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %q %+v", q, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if q != tt.wantQuery || p != tt.want {
				t.Errorf("Expected %q %+v, got %q %+v", tt.wantQuery, tt.want, q, p)
			}
		})
	}
}
