package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/events"
	"github.com/yourorg/strategy-config/internal/metrics"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Transactor opens serializable transactions and exposes the pool for reads
type Transactor interface {
	InTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error
	Conn() sqlx.ExtContext
}

// Publisher announces committed batches
type Publisher interface {
	PublishBatch(ctx context.Context, event events.BatchCommitted) error
}

// Recorder observes finished batches
type Recorder interface {
	ObserveBatch(entity, outcome string, items int, elapsed time.Duration)
}

// BatchProcessor runs batches of one entity inside a single transaction and
// reports on them once they finish
type BatchProcessor struct {
	db        Transactor
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(db Transactor, publisher Publisher, recorder Recorder, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:        db,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// run executes fn in one transaction. Serialization failures are surfaced to
// the caller, who may resubmit the whole batch.
func (p *BatchProcessor) run(ctx context.Context, entity string, size int, fn func(tx sqlx.ExtContext, now time.Time) error) error {
	start := p.now()

	err := p.db.InTx(ctx, func(tx sqlx.ExtContext) error {
		return fn(tx, p.now())
	})

	outcome := metrics.OutcomeCommitted
	if err != nil {
		outcome = metrics.OutcomeAborted
		var serialization *apperr.SerializationError
		if errors.As(err, &serialization) {
			outcome = metrics.OutcomeConflict
			p.logger.Warn("Batch aborted by concurrent transaction",
				zap.String("entity", entity),
				zap.Int("items", size),
				zap.Error(err))
		}
	}
	p.recorder.ObserveBatch(entity, outcome, size, p.now().Sub(start))
	return err
}

// committed publishes the batch event. The commit already happened, so a
// failed publish is logged and swallowed.
func (p *BatchProcessor) committed(ctx context.Context, entity string, items []BatchItem, ids []int64) {
	event := events.BatchCommitted{
		Entity:      entity,
		Items:       make([]events.ItemRef, len(items)),
		CommittedAt: p.now().UnixMilli(),
	}
	for i, item := range items {
		event.Items[i] = events.ItemRef{Op: string(item.Op), ID: ids[i]}
	}

	if err := p.publisher.PublishBatch(ctx, event); err != nil {
		p.logger.Error("Failed to publish committed batch",
			zap.String("entity", entity),
			zap.Int("items", len(items)),
			zap.Error(err))
		return
	}

	p.logger.Info("Batch committed", zap.String("entity", entity), zap.Int("items", len(items)))
}
