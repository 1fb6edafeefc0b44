package scoring

import (
	"fmt"
	"math"

	"decision-intel/backend/internal/decision"
)

// OptionScore is the internal evidence for one draft option.
type OptionScore struct {
	Index              int      `json:"index"`
	Name               string   `json:"name"`
	SuccessScore       float64  `json:"success_score"`
	FailureScore       float64  `json:"failure_score"`
	RawConfidence      float64  `json:"raw_confidence"`
	DampenedConfidence float64  `json:"dampened_confidence"`
	Reasoning          []string `json:"reasoning"`
	Warnings           []string `json:"warnings"`
}

// SampleDampening shrinks confidence for small similar sets: min(1, n/10).
func SampleDampening(similarCount int) float64 {
	if similarCount <= 0 {
		return 0
	}
	return math.Min(1, float64(similarCount)/float64(SimilarSetSize))
}

// ScoreOptions scores every option against the mined patterns.
func ScoreOptions(options []decision.OptionDraft, patterns Patterns, similarCount int) []OptionScore {
	dampening := SampleDampening(similarCount)
	scores := make([]OptionScore, 0, len(options))
	for i, opt := range options {
		scores = append(scores, scoreOption(i, opt, patterns, dampening))
	}
	return scores
}

func scoreOption(index int, opt decision.OptionDraft, patterns Patterns, dampening float64) OptionScore {
	text := opt.Text()
	score := OptionScore{
		Index:     index,
		Name:      opt.Name,
		Reasoning: []string{},
		Warnings:  []string{},
	}

	successHits := matchKeywords(text, patterns.Success)
	failureHits := matchKeywords(text, patterns.Failure)

	score.SuccessScore = float64(len(successHits)) / math.Max(1, float64(len(patterns.Success.SignalKeywords)))
	score.FailureScore = float64(len(failureHits)) / math.Max(1, float64(len(patterns.Failure.SignalKeywords)))
	score.RawConfidence = clampFloat(score.SuccessScore-score.FailureScore, 0, 1)
	score.DampenedConfidence = clampFloat(score.RawConfidence*dampening, 0, 1)

	for _, kw := range successHits {
		score.Reasoning = append(score.Reasoning, fmt.Sprintf("Contains success keyword: '%s'", kw))
	}
	for _, kw := range failureHits {
		score.Warnings = append(score.Warnings, fmt.Sprintf("Warning: contains failure keyword: '%s'", kw))
	}
	return score
}

func matchKeywords(text string, pattern decision.Pattern) []string {
	if !pattern.Trusted() {
		return nil
	}
	var hits []string
	for _, kw := range pattern.SignalKeywords {
		if containsFold(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
