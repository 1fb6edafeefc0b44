package intel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decision-intel/backend/internal/decision"
	"decision-intel/backend/internal/scoring"
)

var testNow = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

type fakeHistory struct {
	records  []decision.HistoricalDecision
	err      error
	calls    int
	lastOrg  string
	blockCtx bool
}

func (f *fakeHistory) FetchCompletedDecisions(ctx context.Context, orgID, _ string) ([]decision.HistoricalDecision, error) {
	f.calls++
	f.lastOrg = orgID
	if f.blockCtx {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.records, f.err
}

type fakeCorpus struct {
	counts   []decision.FailureCount
	err      error
	calls    int
	lastType string
}

func (f *fakeCorpus) FetchFailurePatterns(ctx context.Context, category string) ([]decision.FailureCount, error) {
	f.calls++
	f.lastType = category
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.counts, f.err
}

func (f *fakeCorpus) FetchBenchmark(ctx context.Context, _ string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]string{}, f.err
}

func pricingHistory() []decision.HistoricalDecision {
	var out []decision.HistoricalDecision
	for i := 0; i < 10; i++ {
		rec := decision.HistoricalDecision{
			ID:               uint(i + 1),
			Title:            "Adjust pricing for small customers",
			ProblemStatement: "Churn is rising among small accounts",
			Category:         "pricing",
			CreatedAt:        testNow.AddDate(0, 0, -i),
		}
		if i < 7 {
			rec.OutcomeRating = decision.RatingBetter
			rec.ChosenOption = &decision.OptionRecord{ID: uint(100 + i), Name: "Annual plan", Description: "with discount"}
		} else {
			rec.OutcomeRating = decision.RatingWorse
			rec.ChosenOption = &decision.OptionRecord{ID: uint(100 + i), Name: "Freemium tier"}
		}
		out = append(out, rec)
	}
	return out
}

func pricingDraft() decision.DecisionDraft {
	return decision.DecisionDraft{
		Title:            "Rework pricing for small customers",
		ProblemStatement: "Small accounts churn after the first quarter",
		Category:         "pricing",
		Options: []decision.OptionDraft{
			{Name: "Annual prepaid", Description: "20% discount"},
			{Name: "Freemium tier"},
		},
	}
}

func corpusCounts() []decision.FailureCount {
	return []decision.FailureCount{
		{FailureReason: "Pricing too low", Count: 14},
		{FailureReason: "Customer confusion about pricing", Count: 9},
	}
}

func newTestAggregator(t *testing.T, history *fakeHistory, corpus *fakeCorpus) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(history, corpus, Config{
		Tokenizer: scoring.DefaultTokenizerConfig(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return agg
}

func TestRecommendRejectsEmptyTitle(t *testing.T) {
	history := &fakeHistory{}
	corpus := &fakeCorpus{}
	agg := newTestAggregator(t, history, corpus)

	_, err := agg.Recommend(context.Background(), decision.DecisionDraft{Title: "   "}, "org-1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, history.calls)
	assert.Zero(t, corpus.calls)

	_, err = agg.Recommend(context.Background(), pricingDraft(), "")
	assert.True(t, IsValidation(err))
}

func TestRecommendHighQuality(t *testing.T) {
	history := &fakeHistory{records: pricingHistory()}
	corpus := &fakeCorpus{counts: corpusCounts()}
	agg := newTestAggregator(t, history, corpus)

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "org-1", history.lastOrg)
	assert.Equal(t, "pricing", result.Category)
	assert.Equal(t, CategoryExplicit, result.CategorySource)
	assert.Equal(t, QualityHigh, result.RecommendationQuality)

	require.Equal(t, SourceOK, result.Internal.Status)
	rec := result.Internal.Recommendation
	require.NotNil(t, rec)
	require.True(t, rec.HasRecommendation)
	assert.Equal(t, 0, rec.RecommendedOption.Index)
	assert.Equal(t, 67, rec.Confidence)
	require.NotNil(t, rec.NotRecommendedOption)
	assert.Equal(t, 1, rec.NotRecommendedOption.Index)
	assert.Equal(t, 10, rec.SimilarCount)
	assert.Equal(t, 70, rec.SuccessRate)
	assert.Len(t, rec.SimilarCases, 3)

	require.Equal(t, SourceOK, result.External.Status)
	assert.Equal(t, 23, result.External.TotalAnalyzed)
	assert.NotEmpty(t, result.External.Templates)
}

func TestRecommendExternalUnavailable(t *testing.T) {
	history := &fakeHistory{records: pricingHistory()}
	corpus := &fakeCorpus{err: errors.New("dial tcp: connection refused")}
	agg := newTestAggregator(t, history, corpus)

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, SourceOK, result.Internal.Status)
	require.NotNil(t, result.Internal.Recommendation)
	assert.True(t, result.Internal.Recommendation.HasRecommendation)

	assert.Equal(t, SourceUnavailable, result.External.Status)
	assert.Contains(t, result.External.Error, "external unavailable")
	assert.Empty(t, result.External.Templates)
	assert.Zero(t, result.TotalAnalyzed())
	assert.Equal(t, QualityLow, result.RecommendationQuality)
}

func TestRecommendHistoryUnavailable(t *testing.T) {
	history := &fakeHistory{err: errors.New("too many connections")}
	corpus := &fakeCorpus{counts: []decision.FailureCount{{FailureReason: "Pricing too low", Count: 21}}}
	agg := newTestAggregator(t, history, corpus)

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, SourceUnavailable, result.Internal.Status)
	assert.Nil(t, result.Internal.Recommendation)
	assert.Equal(t, SourceOK, result.External.Status)
	assert.Equal(t, QualityMedium, result.RecommendationQuality)
}

func TestRecommendQualityTiers(t *testing.T) {
	tests := []struct {
		name     string
		history  []decision.HistoricalDecision
		counts   []decision.FailureCount
		expected string
	}{
		{"history and corpus", pricingHistory(), corpusCounts(), QualityHigh},
		{"corpus above twenty only", nil, []decision.FailureCount{{FailureReason: "x", Count: 21}}, QualityMedium},
		{"corpus of exactly twenty", nil, []decision.FailureCount{{FailureReason: "x", Count: 20}}, QualityLow},
		{"history without corpus", pricingHistory(), nil, QualityLow},
		{"nothing", nil, nil, QualityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := newTestAggregator(t, &fakeHistory{records: tc.history}, &fakeCorpus{counts: tc.counts})
			result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result.RecommendationQuality)
		})
	}
}

func TestRecommendAbstainsOnEmptyHistory(t *testing.T) {
	agg := newTestAggregator(t, &fakeHistory{}, &fakeCorpus{counts: corpusCounts()})
	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)

	require.Equal(t, SourceOK, result.Internal.Status)
	rec := result.Internal.Recommendation
	assert.False(t, rec.HasRecommendation)
	assert.Equal(t, scoring.ReasonInsufficientConfidence, rec.Reason)
	assert.Zero(t, rec.SimilarCount)
}

func TestRecommendClassifiesWithoutExplicitCategory(t *testing.T) {
	corpus := &fakeCorpus{}
	agg := newTestAggregator(t, &fakeHistory{}, corpus)

	draft := decision.DecisionDraft{Title: "Hire a VP of Sales", ProblemStatement: "The sales team has no leader"}
	result, err := agg.Recommend(context.Background(), draft, "org-1")
	require.NoError(t, err)

	assert.Equal(t, scoring.CategoryHiring, result.Category)
	assert.Equal(t, CategoryClassified, result.CategorySource)
	assert.Equal(t, scoring.CategoryHiring, corpus.lastType)
}

func TestRecommendSkipsMalformedRecords(t *testing.T) {
	records := pricingHistory()
	records = append(records,
		decision.HistoricalDecision{ID: 90, Title: "No option", OutcomeRating: decision.RatingBetter},
		decision.HistoricalDecision{ID: 91, Title: "No rating", ChosenOption: &decision.OptionRecord{Name: "x"}},
	)
	agg := newTestAggregator(t, &fakeHistory{records: records}, &fakeCorpus{})

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Internal.SkippedRecords)
	assert.Equal(t, 10, result.Internal.Recommendation.SimilarCount)
	for _, c := range result.Internal.Recommendation.SimilarCases {
		assert.NotContains(t, []uint{90, 91}, c.ID)
	}
}

// gatedHistory only answers once the external path has queried the corpus.
type gatedHistory struct {
	fakeHistory
	gate chan struct{}
}

func (g *gatedHistory) FetchCompletedDecisions(ctx context.Context, orgID, category string) ([]decision.HistoricalDecision, error) {
	select {
	case <-g.gate:
	case <-time.After(2 * time.Second):
		return nil, errors.New("external path never started")
	}
	return g.fakeHistory.FetchCompletedDecisions(ctx, orgID, category)
}

type gatingCorpus struct {
	fakeCorpus
	gate chan struct{}
	once sync.Once
}

func (g *gatingCorpus) FetchFailurePatterns(ctx context.Context, category string) ([]decision.FailureCount, error) {
	g.once.Do(func() { close(g.gate) })
	return g.fakeCorpus.FetchFailurePatterns(ctx, category)
}

func TestRecommendRunsPathsConcurrently(t *testing.T) {
	gate := make(chan struct{})
	history := &gatedHistory{fakeHistory: fakeHistory{records: pricingHistory()}, gate: gate}
	corpus := &gatingCorpus{fakeCorpus: fakeCorpus{counts: corpusCounts()}, gate: gate}

	agg, err := NewAggregator(history, corpus, Config{
		Tokenizer: scoring.DefaultTokenizerConfig(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, SourceOK, result.Internal.Status)
	assert.Equal(t, SourceOK, result.External.Status)
	assert.Equal(t, QualityHigh, result.RecommendationQuality)
}

func TestCheckRecord(t *testing.T) {
	valid := pricingHistory()[0]

	noTitle := valid
	noTitle.Title = "  "
	noDate := valid
	noDate.CreatedAt = time.Time{}
	noRating := valid
	noRating.OutcomeRating = decision.RatingUnknown
	noOption := valid
	noOption.ChosenOption = nil

	require.NoError(t, checkRecord(valid))
	for name, rec := range map[string]decision.HistoricalDecision{
		"title":  noTitle,
		"date":   noDate,
		"rating": noRating,
		"option": noOption,
	} {
		err := checkRecord(rec)
		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed, name)
		assert.Equal(t, valid.ID, malformed.DecisionID, name)
	}
}

func TestRecommendSkipsRowsWithMissingColumns(t *testing.T) {
	records := pricingHistory()
	records = append(records,
		decision.HistoricalDecision{ID: 92, OutcomeRating: decision.RatingBetter, CreatedAt: testNow,
			ChosenOption: &decision.OptionRecord{ID: 1, Name: "Annual plan"}},
		decision.HistoricalDecision{ID: 93, Title: "Undated pricing change", OutcomeRating: decision.RatingBetter,
			ChosenOption: &decision.OptionRecord{ID: 2, Name: "Annual plan"}},
	)
	agg := newTestAggregator(t, &fakeHistory{records: records}, &fakeCorpus{counts: corpusCounts()})

	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, SourceOK, result.Internal.Status)
	assert.Equal(t, 2, result.Internal.SkippedRecords)
	assert.Equal(t, 10, result.Internal.Recommendation.SimilarCount)
}

func TestRecommendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newTestAggregator(t, &fakeHistory{records: pricingHistory()}, &fakeCorpus{counts: corpusCounts()})
	result, err := agg.Recommend(ctx, pricingDraft(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, SourceCancelled, result.Internal.Status)
	assert.Nil(t, result.Internal.Recommendation)
	assert.Equal(t, SourceCancelled, result.External.Status)
	assert.Empty(t, result.External.FailurePatterns)
	assert.Equal(t, QualityLow, result.RecommendationQuality)
}

func TestRecommendTimeoutMarksBlockedSource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	agg := newTestAggregator(t, &fakeHistory{blockCtx: true}, &fakeCorpus{counts: corpusCounts()})
	result, err := agg.Recommend(ctx, pricingDraft(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, SourceCancelled, result.Internal.Status)
	assert.Nil(t, result.Internal.Recommendation)
}

func TestCrossReferenceWarnings(t *testing.T) {
	agg := newTestAggregator(t, &fakeHistory{}, &fakeCorpus{counts: corpusCounts()})
	result, err := agg.Recommend(context.Background(), pricingDraft(), "org-1")
	require.NoError(t, err)

	var warned []string
	for _, tpl := range result.External.Templates {
		if len(tpl.Warnings) > 0 {
			warned = append(warned, tpl.Name)
		}
	}
	assert.ElementsMatch(t, []string{"Introduce a freemium tier", "Move to usage-based pricing"}, warned)
	for _, tpl := range result.External.Templates {
		if tpl.Name == "Introduce a freemium tier" {
			assert.Equal(t, []string{"'Pricing too low' caused 14 failures in the external corpus"}, tpl.Warnings)
		}
	}
}
