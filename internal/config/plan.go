package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is an ingestion plan read from a YAML file. Zero values leave the
// corresponding IngestConfig setting untouched.
//
//	target: 200
//	query: Cancer OR Cardiology
//	priority_ids:
//	  - NCT04368728
type Plan struct {
	Target      int      `yaml:"target"`
	Query       string   `yaml:"query"`
	PriorityIDs []string `yaml:"priority_ids"`
	PageDelay   float64  `yaml:"page_delay"`
}

// LoadPlan reads and parses an ingestion plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan parses an ingestion plan document.
func ParsePlan(data []byte) (Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if plan.Target < 0 {
		return Plan{}, fmt.Errorf("parse plan: target must not be negative, got %d", plan.Target)
	}
	ids := make([]string, 0, len(plan.PriorityIDs))
	for _, id := range plan.PriorityIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	plan.PriorityIDs = ids
	return plan, nil
}

// Apply overlays the plan on an ingestion config.
func (p Plan) Apply(cfg IngestConfig) IngestConfig {
	cfg = cfg.WithTarget(p.Target).WithQuery(p.Query)
	if len(p.PriorityIDs) > 0 {
		cfg = cfg.WithPriorityIDs(p.PriorityIDs)
	}
	if p.PageDelay > 0 {
		cfg = cfg.WithPageDelay(seconds(p.PageDelay))
	}
	return cfg
}
