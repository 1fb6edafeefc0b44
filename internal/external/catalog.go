package external

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"decision-intel/backend/internal/decision"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// OptionTemplate is a curated canonical option for a decision category.
type OptionTemplate struct {
	Name         string   `yaml:"name" json:"name"`
	SuccessRate  int      `yaml:"success_rate" json:"success_rate"`
	CostEstimate string   `yaml:"cost_estimate" json:"cost_estimate"`
	Pros         []string `yaml:"pros" json:"pros"`
	Cons         []string `yaml:"cons" json:"cons"`
	Warnings     []string `yaml:"-" json:"warnings,omitempty"`
}

// Catalog holds the offline-curated templates and benchmark defaults per category.
type Catalog struct {
	Templates  map[string][]OptionTemplate  `yaml:"templates"`
	Benchmarks map[string]map[string]string `yaml:"benchmarks"`
}

// DefaultCatalog parses the catalogue compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalogue file; an empty path yields the built-in one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	cat := &Catalog{
		Templates:  make(map[string][]OptionTemplate, len(raw.Templates)),
		Benchmarks: make(map[string]map[string]string, len(raw.Benchmarks)),
	}
	for category, templates := range raw.Templates {
		cat.Templates[decision.NormalizeCategory(category)] = templates
	}
	for category, metrics := range raw.Benchmarks {
		cat.Benchmarks[decision.NormalizeCategory(category)] = metrics
	}
	return cat, nil
}

// TemplatesFor returns a copy of the templates for category.
func (c *Catalog) TemplatesFor(category string) []OptionTemplate {
	if c == nil {
		return []OptionTemplate{}
	}
	src := c.Templates[decision.NormalizeCategory(category)]
	out := make([]OptionTemplate, 0, len(src))
	for _, tpl := range src {
		tpl.Pros = append([]string{}, tpl.Pros...)
		tpl.Cons = append([]string{}, tpl.Cons...)
		tpl.Warnings = nil
		out = append(out, tpl)
	}
	return out
}

// BenchmarksFor returns a copy of the benchmark defaults for category.
func (c *Catalog) BenchmarksFor(category string) map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for name, value := range c.Benchmarks[decision.NormalizeCategory(category)] {
		out[name] = value
	}
	return out
}
