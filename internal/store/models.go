package store

import (
	"encoding/json"
	"strings"
	"time"

	"decision-intel/backend/internal/decision"
)

// DecisionRecord is a decision made inside an organization. OutcomeRating stays empty
// until the outcome review is completed.
type DecisionRecord struct {
	ID               uint   `gorm:"primaryKey"`
	OrgID            string `gorm:"size:64;index"`
	Title            string `gorm:"size:512"`
	ProblemStatement string `gorm:"type:text"`
	Category         string `gorm:"size:64;index"`
	ChosenOptionID   *uint
	OutcomeRating    string `gorm:"size:32;index"`
	ReviewedAt       *time.Time
	Options          []OptionRecord `gorm:"foreignKey:DecisionID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OptionRecord is one option considered for a decision.
type OptionRecord struct {
	ID          uint   `gorm:"primaryKey"`
	DecisionID  uint   `gorm:"index"`
	Name        string `gorm:"size:256"`
	Description string `gorm:"type:text"`
	Cost        string `gorm:"size:128"`
	Effort      string `gorm:"size:128"`
	CreatedAt   time.Time
}

// FailureRecord is one entry of the external failure corpus.
type FailureRecord struct {
	ID            uint      `gorm:"primaryKey"`
	CompanyName   string    `gorm:"size:256"`
	Industry      string    `gorm:"size:128"`
	DecisionType  string    `gorm:"size:64;index"`
	FailureReason string    `gorm:"size:512"`
	RedFlagsJSON  string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// BenchmarkMetric stores one named benchmark value for a category.
type BenchmarkMetric struct {
	ID        uint   `gorm:"primaryKey"`
	Category  string `gorm:"size:64;index"`
	Name      string `gorm:"size:128"`
	Value     string `gorm:"size:128"`
	UpdatedAt time.Time
}

// SetRedFlags persists the red flag list as JSON.
func (f *FailureRecord) SetRedFlags(flags []string) {
	if flags == nil {
		f.RedFlagsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(flags)
	f.RedFlagsJSON = string(payload)
}

// FailureRecordFrom converts a corpus entry into its row form.
func FailureRecordFrom(rec decision.ExternalFailureRecord) FailureRecord {
	row := FailureRecord{
		CompanyName:   strings.TrimSpace(rec.CompanyName),
		Industry:      strings.TrimSpace(rec.Industry),
		DecisionType:  decision.NormalizeCategory(rec.DecisionType),
		FailureReason: strings.TrimSpace(rec.FailureReason),
	}
	row.SetRedFlags(rec.RedFlags)
	return row
}

// Historical converts a reviewed decision row into the engine's view. An unparseable
// rating is kept as RatingUnknown so the engine can skip the row.
func (r *DecisionRecord) Historical() decision.HistoricalDecision {
	out := decision.HistoricalDecision{
		ID:               r.ID,
		Title:            r.Title,
		ProblemStatement: r.ProblemStatement,
		Category:         r.Category,
		CreatedAt:        r.CreatedAt,
	}
	if rating, err := decision.ParseOutcomeRating(r.OutcomeRating); err == nil {
		out.OutcomeRating = rating
	}
	if r.ChosenOptionID != nil {
		for _, opt := range r.Options {
			if opt.ID == *r.ChosenOptionID {
				out.ChosenOption = &decision.OptionRecord{ID: opt.ID, Name: opt.Name, Description: opt.Description}
				break
			}
		}
	}
	return out
}
