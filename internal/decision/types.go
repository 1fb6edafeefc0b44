package decision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutcomeRating is the ordinal result of a completed outcome review.
type OutcomeRating int

const (
	RatingUnknown OutcomeRating = iota
	RatingMuchWorse
	RatingWorse
	RatingAsExpected
	RatingBetter
	RatingMuchBetter
)

var ratingNames = map[OutcomeRating]string{
	RatingMuchWorse:  "much_worse",
	RatingWorse:      "worse",
	RatingAsExpected: "as_expected",
	RatingBetter:     "better",
	RatingMuchBetter: "much_better",
}

// ParseOutcomeRating maps the stored review label onto the ordinal scale.
func ParseOutcomeRating(value string) (OutcomeRating, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for rating, name := range ratingNames {
		if name == key {
			return rating, nil
		}
	}
	return RatingUnknown, fmt.Errorf("unknown outcome rating %q", value)
}

func (r OutcomeRating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the five review labels.
func (r OutcomeRating) Valid() bool {
	return r >= RatingMuchWorse && r <= RatingMuchBetter
}

// IsSuccess reports membership of the success set {as_expected, better, much_better}.
func (r OutcomeRating) IsSuccess() bool {
	return r >= RatingAsExpected && r <= RatingMuchBetter
}

// IsFailure reports membership of the failure set {worse, much_worse}.
func (r OutcomeRating) IsFailure() bool {
	return r == RatingMuchWorse || r == RatingWorse
}

// Ordinal returns the 1-based position of the rating on the scale, 0 when unknown.
func (r OutcomeRating) Ordinal() int {
	if !r.Valid() {
		return 0
	}
	return int(r)
}

func (r OutcomeRating) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *OutcomeRating) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOutcomeRating(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// OptionDraft is a candidate option of a draft decision. Identity is positional.
type OptionDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost,omitempty"`
	Effort      string `json:"effort,omitempty"`
}

// Text is the concatenation matched against signal keywords.
func (o OptionDraft) Text() string {
	return o.Name + " " + o.Description
}

// DecisionDraft is the ephemeral input of a recommendation call.
type DecisionDraft struct {
	Title            string        `json:"title"`
	ProblemStatement string        `json:"problem_statement"`
	Category         string        `json:"category,omitempty"`
	Options          []OptionDraft `json:"options"`
}

// OptionRecord is the persisted option a past decision settled on.
type OptionRecord struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HistoricalDecision is a past decision with a completed outcome review.
type HistoricalDecision struct {
	ID               uint          `json:"id"`
	Title            string        `json:"title"`
	ProblemStatement string        `json:"problem_statement"`
	Category         string        `json:"category"`
	CreatedAt        time.Time     `json:"created_at"`
	ChosenOption     *OptionRecord `json:"chosen_option,omitempty"`
	OutcomeRating    OutcomeRating `json:"outcome_rating"`
}

// Pattern summarises the signal keywords of one outcome partition.
type Pattern struct {
	SignalKeywords []string `json:"signal_keywords"`
	SampleSize     int      `json:"sample_size"`
	AvgRating      float64  `json:"avg_rating"`
}

// Trusted reports whether the pattern carries usable evidence.
func (p Pattern) Trusted() bool {
	return p.SampleSize >= 1 && len(p.SignalKeywords) > 0
}

// ExternalFailureRecord is one entry of the curated external failure corpus.
type ExternalFailureRecord struct {
	CompanyName   string   `json:"company_name"`
	Industry      string   `json:"industry"`
	DecisionType  string   `json:"decision_type"`
	FailureReason string   `json:"failure_reason"`
	RedFlags      []string `json:"red_flags"`
}

// NormalizeCategory lower-cases and trims a category label.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// FailureCount is the number of corpus entries sharing one failure reason.
type FailureCount struct {
	FailureReason string `json:"failure_reason"`
	Count         int    `json:"count"`
}
