package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, alert_id, market_id, market_question, side, amount,
	price, status, submission_id, fill_amount, avg_fill_price, error,
	created_at, updated_at`

// Create inserts a new trade leg.
func (s *TradeStore) Create(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, alert_id, market_id, market_question, side, amount, price,
			status, submission_id, fill_amount, avg_fill_price, error,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.AlertID, t.MarketID, t.MarketQuestion,
		string(t.Side), t.Amount, t.Price,
		string(t.Status), t.SubmissionID, t.FillAmount, t.AvgFillPrice, t.Error,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// Update rewrites the mutable venue-response fields of a trade.
func (s *TradeStore) Update(ctx context.Context, t domain.Trade) error {
	const query = `
		UPDATE trades SET
			status = $2, submission_id = $3, fill_amount = $4,
			avg_fill_price = $5, error = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		t.ID, string(t.Status), t.SubmissionID,
		t.FillAmount, t.AvgFillPrice, t.Error, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update trade %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// ListByAlert returns every trade leg submitted for an alert, oldest first.
func (s *TradeStore) ListByAlert(ctx context.Context, alertID string) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE alert_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by alert: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// ListRecent returns the newest trades first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// ListBefore returns trades created strictly before the given time, oldest
// first, for archiving.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes trades created before the given time and returns the
// number removed.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t      domain.Trade
			side   string
			status string
		)
		if err := rows.Scan(
			&t.ID, &t.AlertID, &t.MarketID, &t.MarketQuestion,
			&side, &t.Amount, &t.Price,
			&status, &t.SubmissionID, &t.FillAmount, &t.AvgFillPrice, &t.Error,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		t.Status = domain.TradeStatus(status)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
