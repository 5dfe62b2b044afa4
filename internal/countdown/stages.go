package countdown

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StagePlan is the on-disk stage configuration: per-category minute
// budgets and the live-coding classifier keywords.
type StagePlan struct {
	TechnicalMinutes   int      `yaml:"technical_minutes"`
	LiveCodingMinutes  int      `yaml:"live_coding_minutes"`
	LiveCodingKeywords []string `yaml:"live_coding_keywords"`
}

// LoadStagePlan reads a stage plan from a YAML file.
func LoadStagePlan(path string) (*StagePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage plan: %w", err)
	}

	var plan StagePlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse stage plan: %w", err)
	}

	if plan.TechnicalMinutes <= 0 {
		return nil, fmt.Errorf("stage plan: technical_minutes must be positive, got %d", plan.TechnicalMinutes)
	}
	if plan.LiveCodingMinutes <= 0 {
		return nil, fmt.Errorf("stage plan: live_coding_minutes must be positive, got %d", plan.LiveCodingMinutes)
	}

	return &plan, nil
}

// Config converts the plan into timer configuration. Missing keywords
// fall back to the defaults.
func (p *StagePlan) Config() Config {
	cfg := Config{
		Technical:  time.Duration(p.TechnicalMinutes) * time.Minute,
		LiveCoding: time.Duration(p.LiveCodingMinutes) * time.Minute,
		Keywords:   p.LiveCodingKeywords,
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultLiveCodingKeywords
	}
	return cfg
}
