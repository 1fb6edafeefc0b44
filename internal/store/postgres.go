package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/decision"
)

const completedDecisionsQuery = `
	SELECT d.id, d.title, d.problem_statement, d.category, d.created_at, d.outcome_rating,
	       o.id, o.name, o.description
	FROM decision_records d
	LEFT JOIN option_records o ON o.id = d.chosen_option_id AND o.decision_id = d.id
	WHERE d.org_id = $1
	  AND d.outcome_rating <> ''
	  AND ($2::text = '' OR d.category = $2::text)
	ORDER BY d.created_at DESC`

// PostgresHistory reads reviewed decisions from a Postgres database sharing the
// decision_records/option_records layout.
type PostgresHistory struct {
	db *sql.DB
}

// OpenPostgresHistory connects to dsn and verifies the connection.
func OpenPostgresHistory(ctx context.Context, dsn string) (*PostgresHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logrus.Info("postgres history repository connected")
	return NewPostgresHistory(db), nil
}

// NewPostgresHistory wraps an existing connection pool.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// Close releases the connection pool.
func (p *PostgresHistory) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// FetchCompletedDecisions returns orgID's reviewed decisions, newest first.
func (p *PostgresHistory) FetchCompletedDecisions(ctx context.Context, orgID, category string) ([]decision.HistoricalDecision, error) {
	rows, err := p.db.QueryContext(ctx, completedDecisionsQuery, orgID, decision.NormalizeCategory(category))
	if err != nil {
		return nil, fmt.Errorf("query completed decisions: %w", err)
	}
	defer rows.Close()

	var out []decision.HistoricalDecision
	for rows.Next() {
		var (
			hist       decision.HistoricalDecision
			title      sql.NullString
			problem    sql.NullString
			stored     sql.NullString
			createdAt  sql.NullTime
			rating     sql.NullString
			optionID   sql.NullInt64
			optionName sql.NullString
			optionDesc sql.NullString
		)
		// Nullable columns land as zero values; the aggregator skips such rows as malformed.
		if err := rows.Scan(&hist.ID, &title, &problem, &stored, &createdAt, &rating,
			&optionID, &optionName, &optionDesc); err != nil {
			return nil, fmt.Errorf("scan completed decision: %w", err)
		}
		hist.Title = title.String
		hist.ProblemStatement = problem.String
		hist.Category = stored.String
		if createdAt.Valid {
			hist.CreatedAt = createdAt.Time
		}
		if parsed, err := decision.ParseOutcomeRating(rating.String); err == nil {
			hist.OutcomeRating = parsed
		}
		if optionID.Valid {
			hist.ChosenOption = &decision.OptionRecord{
				ID:          uint(optionID.Int64),
				Name:        optionName.String,
				Description: optionDesc.String,
			}
		}
		out = append(out, hist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed decisions: %w", err)
	}
	return out, nil
}
