package intel

import (
	"context"

	"decision-intel/backend/internal/decision"
	"decision-intel/backend/internal/external"
	"decision-intel/backend/internal/scoring"
)

// HistoricalDecisionRepository reads an organization's reviewed decisions.
type HistoricalDecisionRepository interface {
	// FetchCompletedDecisions returns decisions of orgID with a completed outcome review,
	// optionally restricted to one category (empty means all).
	FetchCompletedDecisions(ctx context.Context, orgID, category string) ([]decision.HistoricalDecision, error)
}

// ExternalCorpusRepository reads the external failure corpus and benchmarks.
type ExternalCorpusRepository = external.CorpusRepository

// SourceStatus marks whether a source contributed to a result.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceUnavailable SourceStatus = "unavailable"
	SourceCancelled   SourceStatus = "cancelled"
)

// Recommendation quality tiers.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// Category sources.
const (
	CategoryExplicit   = "explicit"
	CategoryClassified = "classified"
)

// InternalResult wraps the organization-history path. Recommendation is nil unless Status is ok.
type InternalResult struct {
	Status         SourceStatus            `json:"status"`
	Error          string                  `json:"error,omitempty"`
	SkippedRecords int                     `json:"skipped_records"`
	Recommendation *scoring.Recommendation `json:"recommendation,omitempty"`
}

// ExternalResult wraps the curated external path. Payload fields are empty unless Status is ok.
type ExternalResult struct {
	Status SourceStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
	external.Result
}

// AggregateResult carries both sources side by side.
type AggregateResult struct {
	RequestID             string         `json:"request_id"`
	Category              string         `json:"category"`
	CategorySource        string         `json:"category_source"`
	Internal              InternalResult `json:"internal"`
	External              ExternalResult `json:"external"`
	RecommendationQuality string         `json:"recommendation_quality"`
	ProcessingTimeMs      int64          `json:"processing_time_ms"`
	Narrative             string         `json:"narrative,omitempty"`
}

// SimilarCount is the internal similar-set size, zero when the source degraded.
func (r AggregateResult) SimilarCount() int {
	if r.Internal.Status != SourceOK || r.Internal.Recommendation == nil {
		return 0
	}
	return r.Internal.Recommendation.SimilarCount
}

// TotalAnalyzed is the external corpus size behind the result, zero when the source degraded.
func (r AggregateResult) TotalAnalyzed() int {
	if r.External.Status != SourceOK {
		return 0
	}
	return r.External.TotalAnalyzed
}
