package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// TableSpec describes one entity table
type TableSpec struct {
	Entity     string   // name used in errors and logs, e.g. "Strategy"
	Name       string   // SQL table name
	Writable   []string // columns accepted by Insert and Patch
	Filterable []string // columns accepted by Filter.Equals
	TimeColumn string   // column used by Filter.From/To and DeleteBefore; empty disables both
}

// Table is the Entity Store for rows of type T. It never opens transactions:
// every call takes the executor (pool or tx) it must run against.
type Table[T any] struct {
	spec       TableSpec
	writable   map[string]bool
	filterable map[string]bool
	logger     *zap.Logger
}

// NewTable creates a new table store
func NewTable[T any](spec TableSpec, logger *zap.Logger) *Table[T] {
	return &Table[T]{
		spec:       spec,
		writable:   toSet(spec.Writable),
		filterable: toSet(spec.Filterable),
		logger:     logger,
	}
}

// Entity returns the entity name of the table
func (t *Table[T]) Entity() string {
	return t.spec.Entity
}

// Find returns the row with the given id
func (t *Table[T]) Find(ctx context.Context, q sqlx.ExtContext, id int64) (*T, error) {
	query := q.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE id = ?", t.spec.Name))

	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
		}
		t.logger.Error("Failed to find row", zap.String("table", t.spec.Name), zap.Int64("id", id), zap.Error(err))
		return nil, classify(err)
	}
	return &row, nil
}

// FindMany returns one page of rows matching the filter, newest id first
func (t *Table[T]) FindMany(ctx context.Context, q sqlx.ExtContext, filter model.Filter) (model.Page[T], error) {
	filter = filter.Normalize()

	where, args, err := t.where(filter)
	if err != nil {
		return model.Page[T]{}, err
	}

	var total int
	countQuery := q.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s%s", t.spec.Name, where))
	if err := sqlx.GetContext(ctx, q, &total, countQuery, args...); err != nil {
		t.logger.Error("Failed to count rows", zap.String("table", t.spec.Name), zap.Error(err))
		return model.Page[T]{}, classify(err)
	}

	rows := make([]T, 0, filter.PageSize)
	listQuery := q.Rebind(fmt.Sprintf("SELECT * FROM %s%s ORDER BY id DESC LIMIT ? OFFSET ?", t.spec.Name, where))
	listArgs := append(args, filter.PageSize, filter.Offset())
	if err := sqlx.SelectContext(ctx, q, &rows, listQuery, listArgs...); err != nil {
		t.logger.Error("Failed to list rows", zap.String("table", t.spec.Name), zap.Error(err))
		return model.Page[T]{}, classify(err)
	}

	return model.Page[T]{
		Items:        rows,
		PageNumber:   filter.PageNumber,
		PageSize:     filter.PageSize,
		TotalResults: total,
		TotalPages:   model.TotalPages(total, filter.PageSize),
	}, nil
}

// Insert adds a row built from the given columns and returns it as stored
func (t *Table[T]) Insert(ctx context.Context, q sqlx.ExtContext, cols map[string]interface{}) (*T, error) {
	names, args, err := t.columns(cols)
	if err != nil {
		return nil, err
	}
	query := q.Rebind(buildInsert(t.spec.Name, names))

	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		err = classify(err)
		t.logger.Warn("Failed to insert row", zap.String("table", t.spec.Name), zap.Error(err))
		return nil, err
	}
	return &row, nil
}

// Patch updates the given columns of one row and returns it as stored
func (t *Table[T]) Patch(ctx context.Context, q sqlx.ExtContext, id int64, cols map[string]interface{}) (*T, error) {
	if len(cols) == 0 {
		return t.Find(ctx, q, id)
	}

	names, args, err := t.columns(cols)
	if err != nil {
		return nil, err
	}
	query := q.Rebind(buildUpdate(t.spec.Name, names))
	args = append(args, id)

	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
		}
		err = classify(err)
		t.logger.Warn("Failed to update row", zap.String("table", t.spec.Name), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &row, nil
}

// Delete removes one row
func (t *Table[T]) Delete(ctx context.Context, q sqlx.ExtContext, id int64) error {
	query := q.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.spec.Name))

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		err = classify(err)
		t.logger.Warn("Failed to delete row", zap.String("table", t.spec.Name), zap.Int64("id", id), zap.Error(err))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
	}
	return nil
}

// DeleteBefore removes every row whose time column is older than cutoff
func (t *Table[T]) DeleteBefore(ctx context.Context, q sqlx.ExtContext, cutoff int64) (int64, error) {
	if t.spec.TimeColumn == "" {
		return 0, fmt.Errorf("table %s has no time column", t.spec.Name)
	}
	query := q.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.spec.Name, t.spec.TimeColumn))

	result, err := q.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, classify(err)
	}
	return result.RowsAffected()
}

// where renders the filter as a WHERE clause using ? placeholders
func (t *Table[T]) where(filter model.Filter) (string, []interface{}, error) {
	var (
		clauses []string
		args    []interface{}
	)

	keys := make([]string, 0, len(filter.Equals))
	for key := range filter.Equals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !t.filterable[key] {
			return "", nil, apperr.NewValidationError(key, "filter", fmt.Sprintf("%s cannot be filtered by %s", t.spec.Entity, key))
		}
		clauses = append(clauses, key+" = ?")
		args = append(args, filter.Equals[key])
	}

	if len(filter.IDs) > 0 {
		clauses = append(clauses, "id = ANY(?)")
		args = append(args, pq.Array(filter.IDs))
	}

	if filter.From != nil || filter.To != nil {
		if t.spec.TimeColumn == "" {
			return "", nil, apperr.NewValidationError("from", "filter", fmt.Sprintf("%s has no time range", t.spec.Entity))
		}
		if filter.From != nil {
			clauses = append(clauses, t.spec.TimeColumn+" >= ?")
			args = append(args, *filter.From)
		}
		if filter.To != nil {
			clauses = append(clauses, t.spec.TimeColumn+" <= ?")
			args = append(args, *filter.To)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// columns returns the column names in stable order with their values,
// rejecting anything outside the writable set
func (t *Table[T]) columns(cols map[string]interface{}) ([]string, []interface{}, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		if !t.writable[name] {
			return nil, nil, fmt.Errorf("column %s is not writable on %s", name, t.spec.Name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = cols[name]
	}
	return names, args, nil
}

func buildInsert(table string, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", table)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", table, strings.Join(names, ", "), placeholders)
}

func buildUpdate(table string, names []string) string {
	sets := make([]string, len(names))
	for i, name := range names {
		sets[i] = name + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = ? RETURNING *", table, strings.Join(sets, ", "))
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
