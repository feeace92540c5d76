package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// JunctionSpec describes a many-to-many table between an owner entity and symbols
type JunctionSpec struct {
	Table          string
	OwnerColumn    string
	SymbolColumn   string
	PositionColumn string // empty for unordered junctions
}

// Junction is the Association Manager for one owner↔symbol relation.
// It only ever runs inside the caller's transaction.
type Junction struct {
	spec   JunctionSpec
	logger *zap.Logger
}

// NewJunction creates a new junction store
func NewJunction(spec JunctionSpec, logger *zap.Logger) *Junction {
	return &Junction{
		spec:   spec,
		logger: logger,
	}
}

// Ordered reports whether the junction keeps a position per row
func (j *Junction) Ordered() bool {
	return j.spec.PositionColumn != ""
}

// Replace makes symbolIDs the complete relation of owner. Repeated ids keep
// their first occurrence; ordered junctions store the index as position.
func (j *Junction) Replace(ctx context.Context, q sqlx.ExtContext, ownerID int64, symbolIDs []int64) error {
	if err := j.UnrelateAll(ctx, q, ownerID); err != nil {
		return err
	}

	ids := model.UniqueIDs(symbolIDs)
	if len(ids) == 0 {
		return nil
	}

	query, args := j.buildInsert(ownerID, ids)
	if _, err := q.ExecContext(ctx, q.Rebind(query), args...); err != nil {
		err = classify(err)
		j.logger.Warn("Failed to relate symbols",
			zap.String("table", j.spec.Table),
			zap.Int64("owner_id", ownerID),
			zap.Int64s("symbol_ids", ids),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// UnrelateAll removes every junction row of owner. Symbol rows are untouched.
func (j *Junction) UnrelateAll(ctx context.Context, q sqlx.ExtContext, ownerID int64) error {
	query := q.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", j.spec.Table, j.spec.OwnerColumn))
	if _, err := q.ExecContext(ctx, query, ownerID); err != nil {
		err = classify(err)
		j.logger.Warn("Failed to unrelate symbols", zap.String("table", j.spec.Table), zap.Int64("owner_id", ownerID), zap.Error(err))
		return err
	}
	return nil
}

type ownedSymbol struct {
	OwnerID int64 `db:"owner_id"`
	model.Symbol
}

// Symbols loads the related symbols of every owner in one query. Each requested
// owner gets a non-nil slice, empty when it has no symbols.
func (j *Junction) Symbols(ctx context.Context, q sqlx.ExtContext, ownerIDs []int64) (map[int64][]model.Symbol, error) {
	related := make(map[int64][]model.Symbol, len(ownerIDs))
	for _, id := range ownerIDs {
		related[id] = []model.Symbol{}
	}
	if len(ownerIDs) == 0 {
		return related, nil
	}

	var rows []ownedSymbol
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(j.buildSelect()), pq.Array(ownerIDs)); err != nil {
		j.logger.Error("Failed to load symbols", zap.String("table", j.spec.Table), zap.Error(err))
		return nil, classify(err)
	}

	for _, row := range rows {
		related[row.OwnerID] = append(related[row.OwnerID], row.Symbol)
	}
	return related, nil
}

func (j *Junction) buildInsert(ownerID int64, ids []int64) (string, []interface{}) {
	columns := []string{j.spec.OwnerColumn, j.spec.SymbolColumn}
	if j.Ordered() {
		columns = append(columns, j.spec.PositionColumn)
	}

	tuples := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)*len(columns))
	for i, id := range ids {
		if j.Ordered() {
			tuples[i] = "(?, ?, ?)"
			args = append(args, ownerID, id, i)
		} else {
			tuples[i] = "(?, ?)"
			args = append(args, ownerID, id)
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		j.spec.Table, strings.Join(columns, ", "), strings.Join(tuples, ", ")), args
}

func (j *Junction) buildSelect() string {
	order := "s.id"
	if j.Ordered() {
		order = "j." + j.spec.PositionColumn
	}
	return fmt.Sprintf(
		"SELECT j.%s AS owner_id, s.id, s.name, s.created_at FROM %s j JOIN symbols s ON s.id = j.%s WHERE j.%s = ANY(?) ORDER BY j.%s, %s",
		j.spec.OwnerColumn, j.spec.Table, j.spec.SymbolColumn, j.spec.OwnerColumn, j.spec.OwnerColumn, order,
	)
}
