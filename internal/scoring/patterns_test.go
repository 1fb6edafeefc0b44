package scoring

import (
	"reflect"
	"testing"

	"decision-intel/backend/internal/decision"
)

func similarWith(rating decision.OutcomeRating, name, description string) SimilarDecision {
	return SimilarDecision{Decision: decision.HistoricalDecision{
		ChosenOption:  &decision.OptionRecord{Name: name, Description: description},
		OutcomeRating: rating,
	}}
}

func TestSignalThreshold(t *testing.T) {
	tests := []struct {
		size     int
		expected int
	}{
		{0, 0}, {1, 1}, {3, 1}, {4, 2}, {7, 3}, {10, 3},
	}
	for _, tc := range tests {
		if got := signalThreshold(tc.size); got != tc.expected {
			t.Fatalf("size %d: expected %d got %d", tc.size, tc.expected, got)
		}
	}
}

func TestMinePartitionBoundary(t *testing.T) {
	miner := NewPatternMiner(nil)
	similar := []SimilarDecision{
		similarWith(decision.RatingBetter, "Agency partner", "outsourced recruiting"),
		similarWith(decision.RatingAsExpected, "Internal referral", "bonus program"),
		similarWith(decision.RatingMuchBetter, "Internal promotion", "mentoring track"),
	}

	patterns := miner.Mine(similar)

	expected := []string{"agency", "partner", "outsourced", "recruiting", "internal", "referral", "bonus", "program", "promotion", "mentoring", "track"}
	if !reflect.DeepEqual(patterns.Success.SignalKeywords, expected) {
		t.Fatalf("expected every keyword seen once to qualify, got %v", patterns.Success.SignalKeywords)
	}
	if patterns.Success.SampleSize != 3 {
		t.Fatalf("expected sample size 3 got %d", patterns.Success.SampleSize)
	}
	if patterns.Success.AvgRating != 4 {
		t.Fatalf("expected avg rating 4 got %f", patterns.Success.AvgRating)
	}

	if patterns.Failure.SampleSize != 0 || len(patterns.Failure.SignalKeywords) != 0 {
		t.Fatalf("expected empty failure pattern, got %+v", patterns.Failure)
	}
	if patterns.Failure.Trusted() {
		t.Fatalf("empty partition must not be trusted")
	}
}

func TestMineThresholdFilters(t *testing.T) {
	miner := NewPatternMiner(nil)
	similar := []SimilarDecision{
		similarWith(decision.RatingWorse, "Offshore contractors", "cheap hourly"),
		similarWith(decision.RatingMuchWorse, "Offshore agency", "cheap retainer"),
		similarWith(decision.RatingWorse, "Freelance marketplace", "hourly"),
		similarWith(decision.RatingWorse, "Offshore studio", "fixed bid"),
	}
	// Threshold for four members is two.
	patterns := miner.Mine(similar)
	expected := []string{"offshore", "cheap", "hourly"}
	if !reflect.DeepEqual(patterns.Failure.SignalKeywords, expected) {
		t.Fatalf("expected %v got %v", expected, patterns.Failure.SignalKeywords)
	}
	if patterns.Failure.AvgRating != 1.75 {
		t.Fatalf("expected avg rating 1.75 got %f", patterns.Failure.AvgRating)
	}
}

func TestMineSkipsMissingChosenOption(t *testing.T) {
	miner := NewPatternMiner(nil)
	similar := []SimilarDecision{
		{Decision: decision.HistoricalDecision{OutcomeRating: decision.RatingBetter}},
		similarWith(decision.RatingBetter, "Annual plan", "discount"),
	}
	patterns := miner.Mine(similar)
	if patterns.Success.SampleSize != 1 {
		t.Fatalf("expected decision without chosen option to be dropped, got size %d", patterns.Success.SampleSize)
	}
}
