package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decision-intel/backend/internal/decision"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "decisions.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func saveReviewed(t *testing.T, db *Database, orgID, title, category string, created time.Time, chosen int, rating decision.OutcomeRating) *DecisionRecord {
	t.Helper()
	rec := &DecisionRecord{
		OrgID:            orgID,
		Title:            title,
		ProblemStatement: "problem for " + title,
		Category:         category,
		CreatedAt:        created,
		Options: []OptionRecord{
			{Name: "Hire senior engineer", Description: "experienced backend lead"},
			{Name: "Contract agency", Description: "short term"},
		},
	}
	require.NoError(t, db.SaveDecision(rec))
	if chosen >= 0 {
		require.NoError(t, db.RecordOutcome(rec.ID, rec.Options[chosen].ID, rating, created.Add(90*24*time.Hour)))
	}
	return rec
}

func TestFetchCompletedDecisions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	saveReviewed(t, db, "org-a", "Hire backend lead", " Hiring ", base, 0, decision.RatingBetter)
	saveReviewed(t, db, "org-a", "Hire via agency", "hiring", base.AddDate(0, 1, 0), 1, decision.RatingWorse)
	saveReviewed(t, db, "org-a", "Pending review", "hiring", base.AddDate(0, 2, 0), -1, decision.RatingUnknown)
	saveReviewed(t, db, "org-b", "Other org", "hiring", base, 0, decision.RatingMuchBetter)
	saveReviewed(t, db, "org-a", "Raise prices", "pricing", base.AddDate(0, 3, 0), 0, decision.RatingAsExpected)

	all, err := db.FetchCompletedDecisions(ctx, "org-a", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Raise prices", all[0].Title)
	assert.Equal(t, "Hire via agency", all[1].Title)
	assert.Equal(t, "Hire backend lead", all[2].Title)

	assert.Equal(t, decision.RatingWorse, all[1].OutcomeRating)
	require.NotNil(t, all[1].ChosenOption)
	assert.Equal(t, "Contract agency", all[1].ChosenOption.Name)
	assert.Equal(t, "hiring", all[2].Category)

	hiring, err := db.FetchCompletedDecisions(ctx, "org-a", "HIRING")
	require.NoError(t, err)
	assert.Len(t, hiring, 2)

	none, err := db.FetchCompletedDecisions(ctx, "org-c", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchCompletedDecisionsKeepsUnknownRating(t *testing.T) {
	db := openTestDB(t)
	rec := saveReviewed(t, db, "org-a", "Legacy import", "general", time.Now(), -1, decision.RatingUnknown)
	require.NoError(t, db.gorm.Model(&DecisionRecord{}).Where("id = ?", rec.ID).Update("outcome_rating", "fantastic").Error)

	got, err := db.FetchCompletedDecisions(context.Background(), "org-a", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, decision.RatingUnknown, got[0].OutcomeRating)
	assert.Nil(t, got[0].ChosenOption)
}

func TestRecordOutcomeValidation(t *testing.T) {
	db := openTestDB(t)
	first := saveReviewed(t, db, "org-a", "First", "hiring", time.Now(), -1, decision.RatingUnknown)
	second := saveReviewed(t, db, "org-a", "Second", "hiring", time.Now(), -1, decision.RatingUnknown)

	err := db.RecordOutcome(first.ID, first.Options[0].ID, decision.RatingUnknown, time.Now())
	assert.Error(t, err)

	err = db.RecordOutcome(first.ID, second.Options[0].ID, decision.RatingBetter, time.Now())
	assert.ErrorContains(t, err, "does not belong")

	require.NoError(t, db.RecordOutcome(first.ID, first.Options[1].ID, decision.RatingMuchWorse, time.Now()))
	got, err := db.FetchCompletedDecisions(context.Background(), "org-a", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, decision.RatingMuchWorse, got[0].OutcomeRating)
}

func TestSaveDecisionRequiresOrg(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SaveDecision(&DecisionRecord{Title: "orphan"}))
	assert.Error(t, db.SaveDecision(nil))
}

func TestFetchFailurePatterns(t *testing.T) {
	db := openTestDB(t)
	var records []FailureRecord
	add := func(decisionType, reason string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, FailureRecordFrom(decision.ExternalFailureRecord{
				CompanyName:   "Co",
				Industry:      "SaaS",
				DecisionType:  decisionType,
				FailureReason: reason,
				RedFlags:      []string{"burn rate"},
			}))
		}
	}
	add("Hiring", "Hired too early", 4)
	add("hiring", "Bad culture fit", 2)
	add("hiring", "Wrong seniority", 2)
	add("pricing", "Pricing too low", 3)
	require.NoError(t, db.ReplaceFailureRecords(records))

	counts, err := db.FetchFailurePatterns(context.Background(), "hiring")
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, decision.FailureCount{FailureReason: "Hired too early", Count: 4}, counts[0])
	assert.Equal(t, "Bad culture fit", counts[1].FailureReason)
	assert.Equal(t, "Wrong seniority", counts[2].FailureReason)

	types, err := db.DecisionTypeCounts()
	require.NoError(t, err)
	assert.Equal(t, int64(8), types["hiring"])
	assert.Equal(t, int64(3), types["pricing"])

	require.NoError(t, db.ReplaceFailureRecords(nil))
	total, err := db.CountFailureRecords()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestFailureRecordRedFlags(t *testing.T) {
	row := FailureRecordFrom(decision.ExternalFailureRecord{DecisionType: "pivot", RedFlags: []string{"no traction", "founder conflict"}})
	assert.JSONEq(t, `["no traction","founder conflict"]`, row.RedFlagsJSON)

	row.SetRedFlags(nil)
	assert.Equal(t, "[]", row.RedFlagsJSON)
}

func TestReplaceBenchmarks(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.ReplaceBenchmarks([]BenchmarkMetric{
		{Category: "Hiring", Name: "time_to_fill_days", Value: "45"},
		{Category: "hiring", Name: "time_to_fill_days", Value: "38"},
		{Category: "pricing", Name: "freemium_conversion", Value: "4%"},
		{Category: "", Name: "ignored", Value: "1"},
	}))

	hiring, err := db.FetchBenchmark(context.Background(), "hiring")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"time_to_fill_days": "38"}, hiring)

	count, err := db.CountBenchmarks()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	missing, err := db.FetchBenchmark(context.Background(), "funding")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
