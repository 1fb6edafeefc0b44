package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"decision-intel/backend/internal/decision"
)

// FetchFailurePatterns aggregates failure reasons for a decision type directly from the
// failure_records table, most frequent first.
func (d *Database) FetchFailurePatterns(ctx context.Context, category string) ([]decision.FailureCount, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}

	var results []decision.FailureCount
	query := d.gorm.WithContext(ctx).Table("failure_records").
		Select("failure_reason, COUNT(*) AS count").
		Where("decision_type = ? AND failure_reason <> ''", decision.NormalizeCategory(category)).
		Group("failure_reason").
		Order("count DESC, failure_reason ASC")

	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failure patterns: %w", err)
	}
	return results, nil
}

// ReplaceFailureRecords atomically swaps the failure corpus with the provided slice.
func (d *Database) ReplaceFailureRecords(records []FailureRecord) error {
	if d == nil {
		return errors.New("database is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&FailureRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		// Batch insert to stay under SQLite's variable limit (999)
		const batchSize = 120
		for start := 0; start < len(records); start += batchSize {
			end := start + batchSize
			if end > len(records) {
				end = len(records)
			}
			batch := records[start:end]
			if err := tx.CreateInBatches(batch, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountFailureRecords returns the size of the failure corpus.
func (d *Database) CountFailureRecords() (int64, error) {
	if d == nil {
		return 0, errors.New("database is nil")
	}
	var count int64
	if err := d.gorm.Model(&FailureRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DecisionTypeCounts returns the number of failure records per decision type.
func (d *Database) DecisionTypeCounts() (map[string]int64, error) {
	type row struct {
		DecisionType string
		Total        int64
	}
	var rows []row
	err := d.gorm.Model(&FailureRecord{}).
		Select("decision_type, COUNT(*) AS total").
		Group("decision_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("decision type counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.DecisionType] = r.Total
	}
	return out, nil
}
