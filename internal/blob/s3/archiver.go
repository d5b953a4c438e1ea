package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Narrow store interfaces: the archiver only needs the time-ranged queries
// and the matching deletes, not the full history store surface.

// AlertArchiveStore provides alert access for archival.
type AlertArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradingAlert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TradeArchiveStore provides trade access for archival.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves aged alert and trade history out of Postgres into JSONL
// files in object storage, partitioned by the cutoff month. Rows are only
// deleted after their archive uploaded successfully.
type Archiver struct {
	writer domain.BlobWriter
	alerts AlertArchiveStore
	trades TradeArchiveStore
	logger *slog.Logger
}

func NewArchiver(writer domain.BlobWriter, alerts AlertArchiveStore, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		alerts: alerts,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Run archives and prunes both histories against the given cutoff.
func (a *Archiver) Run(ctx context.Context, before time.Time) error {
	alerts, err := a.alerts.ListBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("s3blob: archive alerts query: %w", err)
	}
	if err := archive(ctx, a.writer, "alerts", before, alerts); err != nil {
		return err
	}
	if len(alerts) > 0 {
		deleted, err := a.alerts.DeleteBefore(ctx, before)
		if err != nil {
			return fmt.Errorf("s3blob: prune alerts: %w", err)
		}
		a.logger.InfoContext(ctx, "alert history archived",
			slog.Int("archived", len(alerts)),
			slog.Int64("deleted", deleted),
		)
	}

	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if err := archive(ctx, a.writer, "trades", before, trades); err != nil {
		return err
	}
	if len(trades) > 0 {
		deleted, err := a.trades.DeleteBefore(ctx, before)
		if err != nil {
			return fmt.Errorf("s3blob: prune trades: %w", err)
		}
		a.logger.InfoContext(ctx, "trade history archived",
			slog.Int("archived", len(trades)),
			slog.Int64("deleted", deleted),
		)
	}

	return nil
}

func archive[T any](ctx context.Context, writer domain.BlobWriter, kind string, before time.Time, records []T) error {
	if len(records) == 0 {
		return nil
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}
	path := archivePath(kind, before)
	if err := writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}
	return nil
}

// archivePath builds the S3 key, partitioned by the cutoff's year-month:
//
//	archive/alerts/2026-08.jsonl
//	archive/trades/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
