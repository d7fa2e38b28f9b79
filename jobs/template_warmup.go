package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erpgate/erpgate/internal/masterdata"
)

// TemplateWarmupJob pre-populates the Redis tax-template caches so the
// first invoice of the day does not pay the load.
type TemplateWarmupJob struct {
	Masterdata *masterdata.Service
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
}

// NewTemplateWarmupJob wires dependencies for the warmup handler.
func NewTemplateWarmupJob(svc *masterdata.Service, pool *pgxpool.Pool, logger *slog.Logger) *TemplateWarmupJob {
	return &TemplateWarmupJob{Masterdata: svc, Pool: pool, Logger: logger}
}

// Handle processes template warmup tasks.
func (j *TemplateWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Masterdata == nil {
		return errors.New("template warmup: handler not configured")
	}
	var payload TemplateWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	companies := payload.Companies
	if len(companies) == 0 {
		loaded, err := j.fetchCompanies(ctx)
		if err != nil {
			logger.Error("load warmup companies", slog.Any("error", err))
			return err
		}
		companies = loaded
	}
	if len(companies) == 0 {
		logger.Info("no companies to warm")
		return nil
	}

	started := time.Now()
	for _, company := range companies {
		warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		err := j.Masterdata.WarmCompany(warmCtx, company)
		cancel()
		if err != nil {
			logger.Error("warm company", slog.String("company", company), slog.Any("error", err))
			return err
		}
	}
	logger.Info("completed template warmup",
		slog.Int("companies", len(companies)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *TemplateWarmupJob) fetchCompanies(ctx context.Context) ([]string, error) {
	if j.Pool == nil {
		return nil, errors.New("template warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT name FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		companies = append(companies, name)
	}
	return companies, rows.Err()
}

func (j *TemplateWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTemplateWarmup))
	}
	return slog.Default().With(slog.String("job", TaskTemplateWarmup))
}
