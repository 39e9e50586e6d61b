package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultGoals are the daily targets used for users who never set their own.
type DefaultGoals struct {
	Calories int     `yaml:"calories"`
	ProteinG float64 `yaml:"protein_g"`
	CarbsG   float64 `yaml:"carbs_g"`
	FatG     float64 `yaml:"fat_g"`
}

type goalsFile struct {
	Daily DefaultGoals `yaml:"daily"`
}

// LoadGoals reads default daily goals from a YAML file such as
//
//	daily:
//	  calories: 2000
//	  protein_g: 120
//
// An empty path yields zero goals.
func LoadGoals(path string) (DefaultGoals, error) {
	if path == "" {
		return DefaultGoals{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultGoals{}, fmt.Errorf("failed to read goals file: %w", err)
	}

	var f goalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return DefaultGoals{}, fmt.Errorf("failed to parse goals file: %w", err)
	}
	g := f.Daily
	if g.Calories < 0 || g.ProteinG < 0 || g.CarbsG < 0 || g.FatG < 0 {
		return DefaultGoals{}, fmt.Errorf("goals file %s has negative values", path)
	}
	return g, nil
}
