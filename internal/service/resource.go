package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Store is the per-entity storage contract
type Store[T any] interface {
	Find(ctx context.Context, q sqlx.ExtContext, id int64) (*T, error)
	FindMany(ctx context.Context, q sqlx.ExtContext, filter model.Filter) (model.Page[T], error)
	Insert(ctx context.Context, q sqlx.ExtContext, cols map[string]interface{}) (*T, error)
	Patch(ctx context.Context, q sqlx.ExtContext, id int64, cols map[string]interface{}) (*T, error)
	Delete(ctx context.Context, q sqlx.ExtContext, id int64) error
}

// Associations manages the symbol relation of one owner entity
type Associations interface {
	Replace(ctx context.Context, q sqlx.ExtContext, ownerID int64, symbolIDs []int64) error
	UnrelateAll(ctx context.Context, q sqlx.ExtContext, ownerID int64) error
	Symbols(ctx context.Context, q sqlx.ExtContext, ownerIDs []int64) (map[int64][]model.Symbol, error)
}

// Enforcer keeps a cross-row invariant inside the batch transaction
type Enforcer[T any] interface {
	AfterCreate(ctx context.Context, tx sqlx.ExtContext, row *T) error
	BeforeUpdate(ctx context.Context, tx sqlx.ExtContext, current *T, cols map[string]interface{}) error
}

// Operation is the kind of a batch item
type Operation string

const (
	OpCreate Operation = "create"
	OpPatch  Operation = "patch"
	OpPut    Operation = "put"
	OpDelete Operation = "delete"
)

// BatchItem is one mutation of a batch. ID is ignored for creates.
type BatchItem struct {
	Op      Operation
	ID      int64
	Changes model.Changes
}

// Prepare adjusts the columns of a write before it reaches the store
type Prepare func(op Operation, cols map[string]interface{}, now time.Time) error

// Assemble turns a stored row and its loaded symbols into a wire body.
// symbols is nil for entities without a symbol relation.
type Assemble[T any, R any] func(row T, symbols []model.Symbol) (R, error)

// ResourceConfig lists the collaborators of one entity
type ResourceConfig[T model.Row, R any] struct {
	Entity   string
	Store    Store[T]
	Symbols  Associations // nil when the entity has no symbol relation
	Enforcer Enforcer[T]  // nil when the entity has no cross-row invariant
	Prepare  Prepare
	Assemble Assemble[T, R]
}

// Resource exposes reads and transactional batch mutations for one entity
type Resource[T model.Row, R any] struct {
	ResourceConfig[T, R]
	processor *BatchProcessor
}

// NewResource creates a resource bound to the batch processor
func NewResource[T model.Row, R any](processor *BatchProcessor, cfg ResourceConfig[T, R]) *Resource[T, R] {
	return &Resource[T, R]{
		ResourceConfig: cfg,
		processor:      processor,
	}
}

// Get returns one assembled entity
func (r *Resource[T, R]) Get(ctx context.Context, id int64) (R, error) {
	return r.fetch(ctx, r.processor.db.Conn(), id)
}

// List returns one page of assembled entities, loading relations for the whole page at once
func (r *Resource[T, R]) List(ctx context.Context, filter model.Filter) (model.Page[R], error) {
	q := r.processor.db.Conn()

	page, err := r.Store.FindMany(ctx, q, filter)
	if err != nil {
		return model.Page[R]{}, err
	}

	var related map[int64][]model.Symbol
	if r.Symbols != nil {
		ids := make([]int64, len(page.Items))
		for i, row := range page.Items {
			ids[i] = row.RowID()
		}
		related, err = r.Symbols.Symbols(ctx, q, ids)
		if err != nil {
			return model.Page[R]{}, err
		}
	}

	items := make([]R, 0, len(page.Items))
	for _, row := range page.Items {
		var symbols []model.Symbol
		if related != nil {
			symbols = related[row.RowID()]
		}
		body, err := r.Assemble(row, symbols)
		if err != nil {
			return model.Page[R]{}, err
		}
		items = append(items, body)
	}

	return model.Page[R]{
		Items:        items,
		PageNumber:   page.PageNumber,
		PageSize:     page.PageSize,
		TotalResults: page.TotalResults,
		TotalPages:   page.TotalPages,
	}, nil
}

// Execute applies items in order inside one serializable transaction. Either
// every item commits and the results line up with items, or nothing does and
// the first failure is returned unchanged.
func (r *Resource[T, R]) Execute(ctx context.Context, items []BatchItem) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	var (
		results []R
		ids     []int64
	)
	err := r.processor.run(ctx, r.Entity, len(items), func(tx sqlx.ExtContext, now time.Time) error {
		results = make([]R, 0, len(items))
		ids = make([]int64, 0, len(items))

		for i, item := range items {
			body, id, err := r.apply(ctx, tx, item, now)
			if err != nil {
				r.processor.logger.Info("Batch item failed, rolling back",
					zap.String("entity", r.Entity),
					zap.Int("index", i),
					zap.String("op", string(item.Op)),
					zap.Int64("id", item.ID),
					zap.Error(err))
				return err
			}
			results = append(results, body)
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.processor.committed(ctx, r.Entity, items, ids)
	return results, nil
}

func (r *Resource[T, R]) apply(ctx context.Context, tx sqlx.ExtContext, item BatchItem, now time.Time) (R, int64, error) {
	switch item.Op {
	case OpCreate:
		return r.create(ctx, tx, item.Changes, now)
	case OpPatch, OpPut:
		return r.update(ctx, tx, item, now)
	case OpDelete:
		body, err := r.delete(ctx, tx, item.ID)
		return body, item.ID, err
	default:
		var zero R
		return zero, 0, fmt.Errorf("unknown batch operation %q", item.Op)
	}
}

func (r *Resource[T, R]) create(ctx context.Context, tx sqlx.ExtContext, changes model.Changes, now time.Time) (R, int64, error) {
	var zero R

	cols := copyColumns(changes.Columns)
	if r.Prepare != nil {
		if err := r.Prepare(OpCreate, cols, now); err != nil {
			return zero, 0, err
		}
	}

	row, err := r.Store.Insert(ctx, tx, cols)
	if err != nil {
		return zero, 0, err
	}
	id := (*row).RowID()

	if r.Enforcer != nil {
		if err := r.Enforcer.AfterCreate(ctx, tx, row); err != nil {
			return zero, 0, err
		}
	}

	if r.Symbols != nil && changes.SymbolIDs != nil {
		if err := r.Symbols.Replace(ctx, tx, id, changes.SymbolIDs); err != nil {
			return zero, 0, err
		}
	}

	body, err := r.fetch(ctx, tx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return zero, 0, &apperr.UnableToCreateInstanceError{Entity: r.Entity, Err: err}
		}
		return zero, 0, err
	}
	return body, id, nil
}

func (r *Resource[T, R]) update(ctx context.Context, tx sqlx.ExtContext, item BatchItem, now time.Time) (R, int64, error) {
	var zero R

	current, err := r.Store.Find(ctx, tx, item.ID)
	if err != nil {
		return zero, 0, err
	}

	symbolIDs := item.Changes.SymbolIDs
	if item.Op == OpPut && symbolIDs == nil {
		symbolIDs = []int64{}
	}

	cols := copyColumns(item.Changes.Columns)
	if len(cols) > 0 {
		if r.Prepare != nil {
			if err := r.Prepare(item.Op, cols, now); err != nil {
				return zero, 0, err
			}
		}
		if r.Enforcer != nil {
			if err := r.Enforcer.BeforeUpdate(ctx, tx, current, cols); err != nil {
				return zero, 0, err
			}
		}
		if _, err := r.Store.Patch(ctx, tx, item.ID, cols); err != nil {
			return zero, 0, err
		}
	}

	if r.Symbols != nil && symbolIDs != nil {
		if err := r.Symbols.Replace(ctx, tx, item.ID, symbolIDs); err != nil {
			return zero, 0, err
		}
	}

	body, err := r.fetch(ctx, tx, item.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return zero, 0, &apperr.UnableToUpdateInstanceError{Entity: r.Entity, ID: item.ID, Err: err}
		}
		return zero, 0, err
	}
	return body, item.ID, nil
}

func (r *Resource[T, R]) delete(ctx context.Context, tx sqlx.ExtContext, id int64) (R, error) {
	body, err := r.fetch(ctx, tx, id)
	if err != nil {
		return body, err
	}

	if r.Symbols != nil {
		if err := r.Symbols.UnrelateAll(ctx, tx, id); err != nil {
			return body, err
		}
	}

	if err := r.Store.Delete(ctx, tx, id); err != nil {
		return body, err
	}
	return body, nil
}

// fetch reads one row with its relation and assembles it
func (r *Resource[T, R]) fetch(ctx context.Context, q sqlx.ExtContext, id int64) (R, error) {
	var zero R

	row, err := r.Store.Find(ctx, q, id)
	if err != nil {
		return zero, err
	}

	var symbols []model.Symbol
	if r.Symbols != nil {
		related, err := r.Symbols.Symbols(ctx, q, []int64{id})
		if err != nil {
			return zero, err
		}
		symbols = related[id]
	}

	return r.Assemble(*row, symbols)
}

func copyColumns(cols map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cols))
	for k, v := range cols {
		out[k] = v
	}
	return out
}
