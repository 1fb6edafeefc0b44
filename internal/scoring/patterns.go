package scoring

import (
	"math"

	"decision-intel/backend/internal/decision"
)

// signalShare is the fraction of a partition a keyword must appear in to count as a signal.
const signalShare = 0.3

// Patterns holds the mined success and failure signals of a similar set.
type Patterns struct {
	Success decision.Pattern `json:"success"`
	Failure decision.Pattern `json:"failure"`
}

// PatternMiner extracts outcome-correlated keywords from chosen options.
type PatternMiner struct {
	extractor *Extractor
}

// NewPatternMiner builds a miner sharing the given extractor.
func NewPatternMiner(extractor *Extractor) *PatternMiner {
	if extractor == nil {
		extractor = NewExtractor(DefaultTokenizerConfig())
	}
	return &PatternMiner{extractor: extractor}
}

// Mine partitions the similar set by outcome and keeps, per partition, the keywords
// present in at least ceil(0.3 * size) members. Decisions without a chosen option are
// left out of both partitions.
func (m *PatternMiner) Mine(similar []SimilarDecision) Patterns {
	var successful, failed []decision.HistoricalDecision
	for _, item := range similar {
		hist := item.Decision
		if hist.ChosenOption == nil {
			continue
		}
		switch {
		case hist.OutcomeRating.IsSuccess():
			successful = append(successful, hist)
		case hist.OutcomeRating.IsFailure():
			failed = append(failed, hist)
		}
	}
	return Patterns{
		Success: m.partitionPattern(successful),
		Failure: m.partitionPattern(failed),
	}
}

func (m *PatternMiner) partitionPattern(members []decision.HistoricalDecision) decision.Pattern {
	pattern := decision.Pattern{SignalKeywords: []string{}, SampleSize: len(members)}
	if len(members) == 0 {
		return pattern
	}

	counts := make(map[string]int)
	var order []string
	ratingSum := 0
	for _, hist := range members {
		ratingSum += hist.OutcomeRating.Ordinal()
		keywords := m.extractor.Extract(hist.ChosenOption.Name + " " + hist.ChosenOption.Description)
		for _, kw := range keywords {
			if _, seen := counts[kw]; !seen {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	threshold := signalThreshold(len(members))
	for _, kw := range order {
		if counts[kw] >= threshold {
			pattern.SignalKeywords = append(pattern.SignalKeywords, kw)
		}
	}
	pattern.AvgRating = math.Round(float64(ratingSum)/float64(len(members))*100) / 100
	return pattern
}

func signalThreshold(size int) int {
	// Guard against 0.3*n landing a hair above an integer.
	return int(math.Ceil(signalShare*float64(size) - 1e-9))
}
