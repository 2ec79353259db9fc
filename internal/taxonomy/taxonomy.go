// Package taxonomy holds the knowledge category rules used by the chunk
// classifier. Rules ship with compiled-in defaults and can be replaced at
// runtime from a YAML file, so classification is adjustable without a
// redeploy.
package taxonomy

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CategoryGeneral is the fallback category when no rule scores above zero.
const CategoryGeneral = "general"

// Rule is one weighted keyword rule for a knowledge category.
type Rule struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Description string   `yaml:"description,omitempty"`
	Weight      float64  `yaml:"weight"`
	Keywords    []string `yaml:"keywords"`
}

// Taxonomy is the full ordered rule set.
type Taxonomy struct {
	Rules []Rule `yaml:"categories"`
}

// Default returns the built-in rule set covering the consultancy's
// manufacturing, AI, and business domains.
func Default() Taxonomy {
	return Taxonomy{Rules: []Rule{
		{
			Name:        "manufacturing-knowledge",
			DisplayName: "Manufacturing Knowledge",
			Description: "Shop-floor production, fabrication, and lean practices",
			Weight:      0.9,
			Keywords: []string{
				"manufacturing", "production", "assembly", "machining",
				"fabrication", "lean", "six sigma", "quality control",
			},
		},
		{
			Name:        "ai-applications",
			DisplayName: "AI Applications",
			Description: "Applied machine learning and automation for SMBs",
			Weight:      0.95,
			Keywords: []string{
				"artificial intelligence", "machine learning", "predictive maintenance",
				"condition monitoring", "computer vision", "anomaly detection",
				"neural network", "automation",
			},
		},
		{
			Name:        "business-operations",
			DisplayName: "Business Operations",
			Description: "Process, workflow, and supply chain improvement",
			Weight:      0.85,
			Keywords: []string{
				"operations", "process improvement", "workflow", "efficiency",
				"supply chain", "logistics", "scheduling", "inventory",
			},
		},
		{
			Name:        "financial-management",
			DisplayName: "Financial Management",
			Description: "Revenue, cost, and investment topics",
			Weight:      0.85,
			Keywords: []string{
				"revenue", "cost reduction", "budget", "profit",
				"cash flow", "pricing", "roi", "investment",
			},
		},
		{
			Name:        "workforce-training",
			DisplayName: "Workforce Training",
			Description: "Upskilling, onboarding, and safety programs",
			Weight:      0.8,
			Keywords: []string{
				"training", "onboarding", "upskilling", "certification",
				"safety", "competency", "curriculum",
			},
		},
	}}
}

// Validate checks a taxonomy for structural problems.
func (t Taxonomy) Validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}

	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if r.Name == "" {
			return fmt.Errorf("taxonomy category is missing a name")
		}
		if seen[r.Name] {
			return fmt.Errorf("taxonomy category %q is duplicated", r.Name)
		}
		seen[r.Name] = true

		if r.Weight <= 0 || r.Weight > 1 {
			return fmt.Errorf("taxonomy category %q weight must be in (0,1]", r.Name)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("taxonomy category %q has no keywords", r.Name)
		}
		for _, kw := range r.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("taxonomy category %q has an empty keyword", r.Name)
			}
		}
	}
	return nil
}

// LoadFile reads and validates a taxonomy from a YAML file.
func LoadFile(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("failed to parse taxonomy file: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Taxonomy{}, err
	}
	return t, nil
}

// Store serves the current taxonomy to the classifier and supports live
// reloads. Reads vastly outnumber writes; a RWMutex is sufficient.
type Store struct {
	mu  sync.RWMutex
	tax Taxonomy
}

// NewStore creates a Store seeded with the given taxonomy.
func NewStore(t Taxonomy) *Store {
	return &Store{tax: t}
}

// Current returns the active rule set.
func (s *Store) Current() Taxonomy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tax
}

// Reload replaces the active rule set from a YAML file. On error the
// previous rules stay in effect.
func (s *Store) Reload(path string) error {
	t, err := LoadFile(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tax = t
	s.mu.Unlock()
	return nil
}
