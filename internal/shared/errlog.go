package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrorLog records internal failures in the error_logs table so operators
// can diagnose them after the request transaction has rolled back. Writes go
// through the pool, never the request transaction.
type ErrorLog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewErrorLog constructs an ErrorLog recorder.
func NewErrorLog(pool *pgxpool.Pool, logger *slog.Logger) *ErrorLog {
	return &ErrorLog{pool: pool, logger: logger}
}

// Record persists one failure entry. Recording is best effort: a failed
// insert is logged and swallowed so it can never mask the original error.
func (l *ErrorLog) Record(ctx context.Context, title string, err error) {
	if l == nil || l.pool == nil || err == nil {
		return
	}
	id := uuid.New()
	_, insertErr := l.pool.Exec(ctx,
		`INSERT INTO error_logs (id, title, message, created_at) VALUES ($1, $2, $3, $4)`,
		id, title, err.Error(), time.Now().UTC(),
	)
	if insertErr != nil {
		l.logger.Error("error log insert failed",
			slog.String("title", title),
			slog.Any("original_error", err),
			slog.Any("error", insertErr))
		return
	}
	l.logger.Error(title, slog.String("error_log_id", id.String()), slog.Any("error", err))
}
