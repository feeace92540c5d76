package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes time-series rows older than a cutoff in milliseconds
type Pruner interface {
	DeleteBefore(ctx context.Context, q sqlx.ExtContext, cutoff int64) (int64, error)
}

// Retention periodically prunes old strategy logs
type Retention struct {
	cron    *cron.Cron
	db      Transactor
	logs    Pruner
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRetention creates a retention job that keeps logs for maxAge
func NewRetention(db Transactor, logs Pruner, maxAge, timeout time.Duration, logger *zap.Logger) *Retention {
	return &Retention{
		cron:    cron.New(cron.WithSeconds()),
		db:      db,
		logs:    logs,
		maxAge:  maxAge,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Schedule registers the prune run on a cron spec (with seconds field)
func (r *Retention) Schedule(spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.Prune(ctx); err != nil {
			r.logger.Error("Failed to prune strategy logs", zap.Error(err))
		}
	})
	return err
}

// Prune deletes logs older than maxAge and returns how many were removed
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.maxAge).UnixMilli()

	removed, err := r.logs.DeleteBefore(ctx, r.db.Conn(), cutoff)
	if err != nil {
		return 0, err
	}

	r.logger.Info("Pruned strategy logs", zap.Int64("removed", removed), zap.Int64("cutoff", cutoff))
	return removed, nil
}

// Start starts the scheduler
func (r *Retention) Start() {
	r.cron.Start()
	r.logger.Info("Retention scheduler started", zap.Duration("max_age", r.maxAge))
}

// Stop waits for a running prune to finish
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("Retention scheduler stopped")
}
