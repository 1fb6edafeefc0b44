package api

import (
	"strings"

	"decision-intel/backend/internal/decision"
	"decision-intel/backend/internal/intel"
)

// OptionPayload is one candidate option in a recommendation request.
type OptionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Effort      string `json:"effort"`
}

// RecommendRequest is the body of POST /api/recommendations.
type RecommendRequest struct {
	Title            string          `json:"title"`
	ProblemStatement string          `json:"problem_statement"`
	Category         string          `json:"category"`
	Options          []OptionPayload `json:"options"`
}

// Draft converts the request into the engine's draft type.
func (r RecommendRequest) Draft() decision.DecisionDraft {
	draft := decision.DecisionDraft{
		Title:            strings.TrimSpace(r.Title),
		ProblemStatement: strings.TrimSpace(r.ProblemStatement),
		Category:         r.Category,
		Options:          make([]decision.OptionDraft, 0, len(r.Options)),
	}
	for _, opt := range r.Options {
		draft.Options = append(draft.Options, decision.OptionDraft{
			Name:        strings.TrimSpace(opt.Name),
			Description: strings.TrimSpace(opt.Description),
			Cost:        opt.Cost,
			Effort:      opt.Effort,
		})
	}
	return draft
}

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	Title            string `json:"title"`
	ProblemStatement string `json:"problem_statement"`
}

// ClassifyResponse carries the detected category.
type ClassifyResponse struct {
	Category string `json:"category"`
}

// CategoriesResponse lists the taxonomy in classifier priority order.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// RecommendationSummary is the compact view of a result pushed to activity stream clients.
type RecommendationSummary struct {
	RequestID         string             `json:"request_id"`
	Title             string             `json:"title"`
	Category          string             `json:"category"`
	Quality           string             `json:"recommendation_quality"`
	Internal          intel.SourceStatus `json:"internal_status"`
	External          intel.SourceStatus `json:"external_status"`
	HasRecommendation bool               `json:"has_recommendation"`
	RecommendedOption string             `json:"recommended_option,omitempty"`
	Confidence        int                `json:"confidence"`
	ProcessingTimeMs  int64              `json:"processing_time_ms"`
}

func summaryFromResult(title string, result intel.AggregateResult) RecommendationSummary {
	summary := RecommendationSummary{
		RequestID:        result.RequestID,
		Title:            title,
		Category:         result.Category,
		Quality:          result.RecommendationQuality,
		Internal:         result.Internal.Status,
		External:         result.External.Status,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	if rec := result.Internal.Recommendation; rec != nil && rec.HasRecommendation {
		summary.HasRecommendation = true
		summary.Confidence = rec.Confidence
		if rec.RecommendedOption != nil {
			summary.RecommendedOption = rec.RecommendedOption.Name
		}
	}
	return summary
}
