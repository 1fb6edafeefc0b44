package scoring

import (
	"math"
	"sort"
	"time"

	"decision-intel/backend/internal/decision"
)

const (
	// AbstainThreshold is the minimum dampened confidence needed to recommend an option.
	AbstainThreshold = 0.30

	maxSimilarCases = 3

	ReasonInsufficientConfidence = "insufficient confidence"
)

// OptionRef identifies a draft option by position.
type OptionRef struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

// SimilarCase is the public view of a historical decision backing a recommendation.
type SimilarCase struct {
	ID         uint                   `json:"id"`
	Title      string                 `json:"title"`
	Rating     decision.OutcomeRating `json:"rating"`
	Date       time.Time              `json:"date"`
	Similarity float64                `json:"similarity"`
}

// Recommendation is the internal path's answer. HasRecommendation=false is an abstention,
// not an error.
type Recommendation struct {
	HasRecommendation    bool          `json:"has_recommendation"`
	Reason               string        `json:"reason,omitempty"`
	RecommendedOption    *OptionRef    `json:"recommended_option,omitempty"`
	NotRecommendedOption *OptionRef    `json:"not_recommended_option,omitempty"`
	Confidence           int           `json:"confidence"`
	SimilarCount         int           `json:"similar_count"`
	SuccessRate          int           `json:"success_rate"`
	Reasoning            []string      `json:"reasoning"`
	Warnings             []string      `json:"warnings"`
	SimilarCases         []SimilarCase `json:"similar_cases"`
	Patterns             *Patterns     `json:"patterns,omitempty"`
}

// Synthesize turns option scores into a recommendation or an abstention.
func Synthesize(scores []OptionScore, similar []SimilarDecision, patterns Patterns) Recommendation {
	similarCount := len(similar)

	ranked := make([]OptionScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DampenedConfidence > ranked[j].DampenedConfidence
	})

	if len(ranked) == 0 || ranked[0].DampenedConfidence < AbstainThreshold {
		return Recommendation{
			HasRecommendation: false,
			Reason:            ReasonInsufficientConfidence,
			SimilarCount:      similarCount,
			Reasoning:         []string{},
			Warnings:          []string{},
			SimilarCases:      []SimilarCase{},
		}
	}

	top := ranked[0]
	rec := Recommendation{
		HasRecommendation: true,
		RecommendedOption: optionRef(top),
		Confidence:        percent(top.DampenedConfidence),
		SimilarCount:      similarCount,
		SuccessRate:       percent(float64(patterns.Success.SampleSize) / float64(similarCount)),
		Reasoning:         append([]string{}, top.Reasoning...),
		Warnings:          append([]string{}, top.Warnings...),
		SimilarCases:      similarCases(similar),
		Patterns:          &patterns,
	}

	if len(ranked) > 1 {
		lowest := ranked[len(ranked)-1]
		if lowest.DampenedConfidence < AbstainThreshold {
			rec.NotRecommendedOption = optionRef(lowest)
		}
	}
	return rec
}

func optionRef(score OptionScore) *OptionRef {
	return &OptionRef{
		Index:      score.Index,
		Name:       score.Name,
		Confidence: percent(score.DampenedConfidence),
	}
}

func similarCases(similar []SimilarDecision) []SimilarCase {
	limit := len(similar)
	if limit > maxSimilarCases {
		limit = maxSimilarCases
	}
	cases := make([]SimilarCase, 0, limit)
	for _, item := range similar[:limit] {
		cases = append(cases, SimilarCase{
			ID:         item.Decision.ID,
			Title:      item.Decision.Title,
			Rating:     item.Decision.OutcomeRating,
			Date:       item.Decision.CreatedAt,
			Similarity: math.Round(item.Score*100) / 100,
		})
	}
	return cases
}

func percent(ratio float64) int {
	return int(math.Round(clampFloat(ratio, 0, 1) * 100))
}
