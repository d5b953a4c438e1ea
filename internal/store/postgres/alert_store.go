package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// AlertStore implements domain.AlertStore. Only resolved alerts are inserted;
// the live state machine stays in the coordinator's memory.
type AlertStore struct {
	pool *pgxpool.Pool
}

func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

const alertSelectCols = `id, status, reason, opportunity, sentiment, recommendation,
	created_at, resolved_at`

// Create inserts a resolved alert. Re-inserting the same ID is a no-op so a
// retried persistence call cannot fail on the primary key.
func (s *AlertStore) Create(ctx context.Context, alert domain.TradingAlert) error {
	opportunity, err := json.Marshal(alert.Opportunity)
	if err != nil {
		return fmt.Errorf("postgres: marshal opportunity: %w", err)
	}
	sentiment, err := json.Marshal(alert.Sentiment)
	if err != nil {
		return fmt.Errorf("postgres: marshal sentiment: %w", err)
	}
	recommendation, err := json.Marshal(alert.Recommendation)
	if err != nil {
		return fmt.Errorf("postgres: marshal recommendation: %w", err)
	}

	const query = `
		INSERT INTO alerts (
			id, market_id, market_question, spread_percent, recommended_side,
			status, reason, opportunity, sentiment, recommendation,
			created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		alert.ID,
		alert.Opportunity.Market.ID,
		alert.Opportunity.Market.Question,
		alert.Opportunity.SpreadPercent,
		string(alert.Opportunity.RecommendedSide),
		string(alert.Status),
		alert.Reason,
		opportunity, sentiment, recommendation,
		alert.CreatedAt, alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListRecent returns the newest alerts first.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]domain.TradingAlert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM alerts ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent alerts: %w", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// ListBefore returns alerts created strictly before the given time, oldest
// first, for archiving.
func (s *AlertStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradingAlert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM alerts WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts before: %w", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// DeleteBefore deletes alerts created before the given time and returns the
// number removed.
func (s *AlertStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete alerts before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAlertRows(rows pgx.Rows) ([]domain.TradingAlert, error) {
	var alerts []domain.TradingAlert
	for rows.Next() {
		var (
			a              domain.TradingAlert
			status         string
			opportunity    []byte
			sentiment      []byte
			recommendation []byte
		)
		if err := rows.Scan(
			&a.ID, &status, &a.Reason,
			&opportunity, &sentiment, &recommendation,
			&a.CreatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		a.Status = domain.AlertStatus(status)
		if err := json.Unmarshal(opportunity, &a.Opportunity); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal opportunity for %s: %w", a.ID, err)
		}
		if err := json.Unmarshal(sentiment, &a.Sentiment); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal sentiment for %s: %w", a.ID, err)
		}
		if err := json.Unmarshal(recommendation, &a.Recommendation); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal recommendation for %s: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
