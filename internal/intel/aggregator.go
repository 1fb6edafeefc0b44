package intel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"decision-intel/backend/internal/decision"
	"decision-intel/backend/internal/external"
	"decision-intel/backend/internal/scoring"
	"decision-intel/backend/internal/util"
)

const (
	sourceHistory  = "history"
	sourceExternal = "external"

	// mediumQualityCorpusSize is the external corpus size that earns a medium tier on its own.
	mediumQualityCorpusSize = 20
)

// Config tunes the aggregator.
type Config struct {
	Tokenizer scoring.TokenizerConfig
	Catalog   *external.Catalog
	Now       func() time.Time
}

// Aggregator runs the classifier, the internal history path and the external path and
// merges them into one AggregateResult.
type Aggregator struct {
	history    HistoricalDecisionRepository
	provider   *external.Provider
	similarity *scoring.SimilarityScorer
	miner      *scoring.PatternMiner
}

// NewAggregator wires the pipeline stages around the two repositories.
func NewAggregator(history HistoricalDecisionRepository, corpus ExternalCorpusRepository, cfg Config) (*Aggregator, error) {
	if history == nil {
		return nil, errors.New("historical decision repository is required")
	}
	if corpus == nil {
		return nil, errors.New("external corpus repository is required")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		var err error
		catalog, err = external.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("default catalog: %w", err)
		}
	}
	extractor := scoring.NewExtractor(cfg.Tokenizer)
	return &Aggregator{
		history:    history,
		provider:   external.NewProvider(catalog, corpus),
		similarity: scoring.NewSimilarityScorer(extractor, cfg.Now),
		miner:      scoring.NewPatternMiner(extractor),
	}, nil
}

// Recommend produces the internal and external evidence for draft within orgID.
// Only validation failures are returned as errors; degraded sources are marked in the result.
func (a *Aggregator) Recommend(ctx context.Context, draft decision.DecisionDraft, orgID string) (AggregateResult, error) {
	timer := util.StartTimer()

	if err := validateDraft(draft, orgID); err != nil {
		return AggregateResult{}, err
	}

	result := AggregateResult{RequestID: uuid.NewString()}
	result.Category, result.CategorySource = resolveCategory(draft)

	// Each path reports its own failure through a SourceStatus and never returns an error,
	// so one degraded source cannot cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		result.Internal = a.runInternal(ctx, draft, orgID)
		return nil
	})
	g.Go(func() error {
		result.External = a.runExternal(ctx, result.Category)
		return nil
	})
	_ = g.Wait()

	if result.External.Status == SourceOK {
		crossReference(result.External.Templates, result.External.FailurePatterns)
	}
	result.RecommendationQuality = qualityTier(result)
	result.ProcessingTimeMs = timer.ElapsedMs()

	RecommendDuration.Observe(timer.ElapsedSeconds())
	RecommendationsTotal.WithLabelValues(result.RecommendationQuality, internalOutcome(result.Internal)).Inc()

	logrus.WithFields(logrus.Fields{
		"request_id":      result.RequestID,
		"org_id":          orgID,
		"category":        result.Category,
		"category_source": result.CategorySource,
		"known_category":  scoring.IsKnownCategory(result.Category),
		"internal":        result.Internal.Status,
		"external":        result.External.Status,
		"similar_count":   result.SimilarCount(),
		"total_analyzed":  result.TotalAnalyzed(),
		"quality":         result.RecommendationQuality,
		"skipped_records": result.Internal.SkippedRecords,
		"duration_ms":     result.ProcessingTimeMs,
	}).Info("recommendation computed")

	return result, nil
}

// External runs only the external path for a category.
func (a *Aggregator) External(ctx context.Context, category string) ExternalResult {
	return a.runExternal(ctx, decision.NormalizeCategory(category))
}

func (a *Aggregator) runInternal(ctx context.Context, draft decision.DecisionDraft, orgID string) InternalResult {
	records, err := a.history.FetchCompletedDecisions(ctx, orgID, "")
	if err != nil {
		status, msg := degrade(ctx, sourceHistory, err)
		return InternalResult{Status: status, Error: msg}
	}

	candidates := make([]decision.HistoricalDecision, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if err := checkRecord(rec); err != nil {
			skipped++
			logrus.WithError(err).WithField("org_id", orgID).Debug("skip historical decision")
			continue
		}
		candidates = append(candidates, rec)
	}
	if skipped > 0 {
		SkippedRecordsTotal.Add(float64(skipped))
	}

	similar := a.similarity.Rank(draft, candidates)
	patterns := a.miner.Mine(similar)
	scores := scoring.ScoreOptions(draft.Options, patterns, len(similar))
	rec := scoring.Synthesize(scores, similar, patterns)

	return InternalResult{Status: SourceOK, SkippedRecords: skipped, Recommendation: &rec}
}

func (a *Aggregator) runExternal(ctx context.Context, category string) ExternalResult {
	res, err := a.provider.Lookup(ctx, category)
	if err != nil {
		status, msg := degrade(ctx, sourceExternal, err)
		return ExternalResult{Status: status, Error: msg}
	}
	return ExternalResult{Status: SourceOK, Result: res}
}

// degrade classifies a source failure as cancelled or unavailable.
func degrade(ctx context.Context, source string, err error) (SourceStatus, string) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		SourceFailuresTotal.WithLabelValues(source, string(SourceCancelled)).Inc()
		logrus.WithField("source", source).Info("recommendation source cancelled")
		return SourceCancelled, ErrCancelled.Error()
	}
	unavailable := &DataUnavailableError{Source: source, Err: err}
	SourceFailuresTotal.WithLabelValues(source, string(SourceUnavailable)).Inc()
	logrus.WithError(unavailable).Warn("recommendation source unavailable")
	return SourceUnavailable, unavailable.Error()
}

func validateDraft(draft decision.DecisionDraft, orgID string) error {
	if strings.TrimSpace(draft.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if strings.TrimSpace(orgID) == "" {
		return &ValidationError{Field: "org_id", Message: "must not be empty"}
	}
	return nil
}

func checkRecord(rec decision.HistoricalDecision) error {
	if strings.TrimSpace(rec.Title) == "" {
		return &MalformedRecordError{DecisionID: rec.ID, Reason: "title missing"}
	}
	if rec.CreatedAt.IsZero() {
		return &MalformedRecordError{DecisionID: rec.ID, Reason: "created_at missing"}
	}
	if !rec.OutcomeRating.Valid() {
		return &MalformedRecordError{DecisionID: rec.ID, Reason: "outcome rating missing or unknown"}
	}
	if rec.ChosenOption == nil {
		return &MalformedRecordError{DecisionID: rec.ID, Reason: "chosen option cannot be resolved"}
	}
	return nil
}

// resolveCategory prefers an explicitly supplied category over the classifier's answer.
func resolveCategory(draft decision.DecisionDraft) (string, string) {
	if explicit := decision.NormalizeCategory(draft.Category); explicit != "" {
		return explicit, CategoryExplicit
	}
	return scoring.Classify(draft.Title, draft.ProblemStatement), CategoryClassified
}

// crossReference warns on templates whose cons mention a known failure reason.
func crossReference(templates []external.OptionTemplate, failures []decision.FailureCount) {
	for i := range templates {
		cons := strings.ToLower(strings.Join(templates[i].Cons, "\n"))
		for _, failure := range failures {
			reason := strings.ToLower(strings.TrimSpace(failure.FailureReason))
			if reason == "" || !strings.Contains(cons, reason) {
				continue
			}
			templates[i].Warnings = append(templates[i].Warnings,
				fmt.Sprintf("'%s' caused %d failures in the external corpus", failure.FailureReason, failure.Count))
		}
	}
}

func qualityTier(result AggregateResult) string {
	similar := result.SimilarCount()
	total := result.TotalAnalyzed()
	switch {
	case similar > 0 && total > 0:
		return QualityHigh
	case total > mediumQualityCorpusSize:
		return QualityMedium
	default:
		return QualityLow
	}
}

func internalOutcome(internal InternalResult) string {
	switch {
	case internal.Status != SourceOK || internal.Recommendation == nil:
		return "unavailable"
	case internal.Recommendation.HasRecommendation:
		return "recommended"
	default:
		return "abstained"
	}
}
