package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"decision-intel/backend/internal/decision"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&DecisionRecord{}, &OptionRecord{}, &FailureRecord{}, &BenchmarkMetric{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDecision inserts a decision together with its options.
func (d *Database) SaveDecision(rec *DecisionRecord) error {
	if rec == nil {
		return errors.New("decision is nil")
	}
	if strings.TrimSpace(rec.OrgID) == "" {
		return errors.New("decision org id is empty")
	}
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Category = decision.NormalizeCategory(rec.Category)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(rec).Error
}

// RecordOutcome completes the outcome review of a decision: the chosen option must
// belong to the decision and the rating must be one of the five labels.
func (d *Database) RecordOutcome(decisionID, chosenOptionID uint, rating decision.OutcomeRating, reviewedAt time.Time) error {
	if !rating.Valid() {
		return fmt.Errorf("record outcome: invalid rating %d", rating)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		var option OptionRecord
		err := tx.Where("id = ? AND decision_id = ?", chosenOptionID, decisionID).First(&option).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("record outcome: option %d does not belong to decision %d", chosenOptionID, decisionID)
		}
		if err != nil {
			return err
		}
		return tx.Model(&DecisionRecord{}).
			Where("id = ?", decisionID).
			Updates(map[string]any{
				"chosen_option_id": chosenOptionID,
				"outcome_rating":   rating.String(),
				"reviewed_at":      &reviewedAt,
			}).Error
	})
}

// FetchCompletedDecisions returns orgID's reviewed decisions, newest first. An empty
// category means every category.
func (d *Database) FetchCompletedDecisions(ctx context.Context, orgID, category string) ([]decision.HistoricalDecision, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	query := d.gorm.WithContext(ctx).
		Preload("Options").
		Where("org_id = ? AND outcome_rating <> ''", orgID)
	if category = decision.NormalizeCategory(category); category != "" {
		query = query.Where("category = ?", category)
	}

	var rows []DecisionRecord
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("completed decisions: %w", err)
	}
	out := make([]decision.HistoricalDecision, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Historical())
	}
	return out, nil
}

// ReplaceBenchmarks swaps the stored benchmark metrics with the provided slice. A later
// metric with the same category and name wins.
func (d *Database) ReplaceBenchmarks(metrics []BenchmarkMetric) error {
	byKey := make(map[string]int)
	deduped := make([]BenchmarkMetric, 0, len(metrics))
	for _, m := range metrics {
		m.ID = 0
		m.Category = decision.NormalizeCategory(m.Category)
		m.Name = strings.TrimSpace(m.Name)
		if m.Category == "" || m.Name == "" {
			continue
		}
		key := m.Category + "\x00" + m.Name
		if idx, ok := byKey[key]; ok {
			deduped[idx] = m
			continue
		}
		byKey[key] = len(deduped)
		deduped = append(deduped, m)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&BenchmarkMetric{}).Error; err != nil {
			return err
		}
		if len(deduped) == 0 {
			return nil
		}
		return tx.CreateInBatches(deduped, 250).Error
	})
}

// FetchBenchmark returns the stored benchmark metrics of a category.
func (d *Database) FetchBenchmark(ctx context.Context, category string) (map[string]string, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var rows []BenchmarkMetric
	err := d.gorm.WithContext(ctx).
		Where("category = ?", decision.NormalizeCategory(category)).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("benchmarks: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

// CountDecisions returns the number of stored decisions.
func (d *Database) CountDecisions() (int64, error) {
	var count int64
	if err := d.gorm.Model(&DecisionRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountBenchmarks returns the number of stored benchmark metrics.
func (d *Database) CountBenchmarks() (int64, error) {
	var count int64
	if err := d.gorm.Model(&BenchmarkMetric{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"UPDATE decision_records SET category = LOWER(TRIM(category)) WHERE category IS NOT NULL AND category <> LOWER(TRIM(category))",
		"UPDATE failure_records SET decision_type = LOWER(TRIM(decision_type)) WHERE decision_type IS NOT NULL AND decision_type <> LOWER(TRIM(decision_type))",
		"CREATE INDEX IF NOT EXISTS idx_decision_records_org_reviewed ON decision_records(org_id, outcome_rating, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_option_records_decision ON option_records(decision_id)",
		"CREATE INDEX IF NOT EXISTS idx_failure_records_type_reason ON failure_records(decision_type, failure_reason)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_benchmark_metrics_category_name ON benchmark_metrics(category, name)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
