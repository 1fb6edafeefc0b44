package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"decision-intel/backend/internal/decision"
)

const (
	categoryWeight = 0.4
	overlapWeight  = 0.4
	recencyWeight  = 0.2

	recencyHorizonDays = 365.0

	// SimilarSetSize is the number of historical decisions kept after ranking.
	SimilarSetSize = 10
)

// SimilarDecision pairs a historical decision with its relevance to the draft.
type SimilarDecision struct {
	Decision decision.HistoricalDecision
	Score    float64
}

// SimilarityScorer scores historical decisions against a draft.
type SimilarityScorer struct {
	extractor *Extractor
	now       func() time.Time
}

// NewSimilarityScorer builds a scorer; now defaults to time.Now.
func NewSimilarityScorer(extractor *Extractor, now func() time.Time) *SimilarityScorer {
	if extractor == nil {
		extractor = NewExtractor(DefaultTokenizerConfig())
	}
	if now == nil {
		now = time.Now
	}
	return &SimilarityScorer{extractor: extractor, now: now}
}

// Score returns the weighted category, keyword-overlap and recency similarity in [0,1].
func (s *SimilarityScorer) Score(draft decision.DecisionDraft, hist decision.HistoricalDecision) float64 {
	var score float64

	category := decision.NormalizeCategory(draft.Category)
	if category != "" && category == decision.NormalizeCategory(hist.Category) {
		score += categoryWeight
	}

	draftKeywords := s.extractor.Extract(draft.Title + " " + draft.ProblemStatement)
	histKeywords := s.extractor.Extract(hist.Title + " " + hist.ProblemStatement)
	score += overlapWeight * jaccard(draftKeywords, histKeywords)

	score += recencyWeight * s.recency(hist.CreatedAt)

	return clampFloat(score, 0, 1)
}

// Rank scores every candidate, sorts descending and keeps the top SimilarSetSize.
// Ties keep the candidates' input order.
func (s *SimilarityScorer) Rank(draft decision.DecisionDraft, candidates []decision.HistoricalDecision) []SimilarDecision {
	ranked := make([]SimilarDecision, 0, len(candidates))
	for _, hist := range candidates {
		ranked = append(ranked, SimilarDecision{Decision: hist, Score: s.Score(draft, hist)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > SimilarSetSize {
		ranked = ranked[:SimilarSetSize]
	}
	return ranked
}

func (s *SimilarityScorer) recency(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	days := s.now().Sub(createdAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(0, 1-days/recencyHorizonDays)
}

func jaccard(a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, kw := range a {
		set[kw] = struct{}{}
	}
	union := len(set)
	intersection := 0
	for _, kw := range b {
		if _, ok := set[kw]; ok {
			intersection++
			continue
		}
		union++
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
