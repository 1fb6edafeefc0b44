package external

import (
	"context"
	"fmt"
	"sort"

	"decision-intel/backend/internal/decision"
)

const maxFailurePatterns = 5

// CorpusRepository reads the external failure corpus and benchmark metrics.
type CorpusRepository interface {
	// FetchFailurePatterns returns failure reasons for a decision type with their counts.
	FetchFailurePatterns(ctx context.Context, category string) ([]decision.FailureCount, error)
	// FetchBenchmark returns stored benchmark metrics for a category.
	FetchBenchmark(ctx context.Context, category string) (map[string]string, error)
}

// Result is the external path's answer for a category.
type Result struct {
	Templates       []OptionTemplate        `json:"templates"`
	FailurePatterns []decision.FailureCount `json:"failure_patterns"`
	Benchmarks      map[string]string       `json:"benchmarks"`
	TotalAnalyzed   int                     `json:"total_analyzed"`
}

// Provider looks up curated external evidence for a category. It never reads
// organization history.
type Provider struct {
	catalog *Catalog
	corpus  CorpusRepository
}

// NewProvider wires the catalogue and the corpus repository.
func NewProvider(catalog *Catalog, corpus CorpusRepository) *Provider {
	return &Provider{catalog: catalog, corpus: corpus}
}

// Lookup returns templates, the top failure reasons and benchmarks for category.
// Any corpus error fails the whole lookup.
func (p *Provider) Lookup(ctx context.Context, category string) (Result, error) {
	category = decision.NormalizeCategory(category)

	counts, err := p.corpus.FetchFailurePatterns(ctx, category)
	if err != nil {
		return Result{}, fmt.Errorf("fetch failure patterns: %w", err)
	}
	stored, err := p.corpus.FetchBenchmark(ctx, category)
	if err != nil {
		return Result{}, fmt.Errorf("fetch benchmark: %w", err)
	}

	patterns, total := topFailures(counts, maxFailurePatterns)

	benchmarks := p.catalog.BenchmarksFor(category)
	for name, value := range stored {
		benchmarks[name] = value
	}

	return Result{
		Templates:       p.catalog.TemplatesFor(category),
		FailurePatterns: patterns,
		Benchmarks:      benchmarks,
		TotalAnalyzed:   total,
	}, nil
}

// topFailures sorts counts descending (ties by reason) and keeps limit entries.
// The total covers every reason, not only the returned ones.
func topFailures(counts []decision.FailureCount, limit int) ([]decision.FailureCount, int) {
	sorted := make([]decision.FailureCount, 0, len(counts))
	total := 0
	for _, c := range counts {
		if c.Count <= 0 || c.FailureReason == "" {
			continue
		}
		total += c.Count
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].FailureReason < sorted[j].FailureReason
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, total
}
