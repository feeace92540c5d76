package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/repository"

	"github.com/jmoiron/sqlx"
)

// Action is what happens to referencing rows when the referenced row is deleted
type Action int

const (
	Restrict Action = iota
	Cascade
)

// Parent is a table other rows can reference
type Parent interface {
	exists(id int64) bool
	addDependent(d dependent, column string, action Action)
}

type dependent interface {
	references(column string, id int64) bool
	removeWhere(column string, id int64)
}

type link struct {
	child  dependent
	column string
	action Action
}

// Reference is a foreign key from Column to the id of Parent
type Reference struct {
	Column   string
	Parent   Parent
	OnDelete Action
}

// Check is a row-level CHECK constraint
type Check struct {
	Name  string
	Holds func(row interface{}) bool
}

// Constraints are the storage-level rules a table enforces
type Constraints struct {
	Unique     [][]string
	References []Reference
	Checks     []Check
}

// Table stores rows of type T keyed by id
type Table[T any] struct {
	mu          sync.RWMutex
	db          *DB
	spec        repository.TableSpec
	constraints Constraints
	columns     map[string]int
	writable    map[string]bool
	filterable  map[string]bool
	rows        map[int64]T
	nextID      int64
	dependents  []link
}

// NewTable creates a table and registers it with db
func NewTable[T any](db *DB, spec repository.TableSpec, constraints Constraints) *Table[T] {
	var zero T
	t := &Table[T]{
		db:          db,
		spec:        spec,
		constraints: constraints,
		columns:     columnIndex(reflect.TypeOf(zero)),
		writable:    toSet(spec.Writable),
		filterable:  toSet(spec.Filterable),
		rows:        make(map[int64]T),
	}
	for _, ref := range constraints.References {
		ref.Parent.addDependent(t, ref.Column, ref.OnDelete)
	}
	db.register(t)
	return t
}

// Entity returns the entity name of the table
func (t *Table[T]) Entity() string {
	return t.spec.Entity
}

// Find returns the row with the given id
func (t *Table[T]) Find(ctx context.Context, q sqlx.ExtContext, id int64) (*T, error) {
	defer t.db.read(q)()
	return t.find(id)
}

func (t *Table[T]) find(id int64) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
	}
	return &row, nil
}

// FindMany returns one page of rows matching the filter, newest id first
func (t *Table[T]) FindMany(ctx context.Context, q sqlx.ExtContext, filter model.Filter) (model.Page[T], error) {
	filter = filter.Normalize()
	if err := t.checkFilter(filter); err != nil {
		return model.Page[T]{}, err
	}

	unlock := t.db.read(q)
	t.mu.RLock()
	matched := make([]T, 0)
	for _, row := range t.rows {
		if t.matches(row, filter) {
			matched = append(matched, row)
		}
	}
	t.mu.RUnlock()
	unlock()

	sort.Slice(matched, func(i, j int) bool {
		return t.id(matched[i]) > t.id(matched[j])
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	return model.Page[T]{
		Items:        matched[start:end],
		PageNumber:   filter.PageNumber,
		PageSize:     filter.PageSize,
		TotalResults: total,
		TotalPages:   model.TotalPages(total, filter.PageSize),
	}, nil
}

// Insert adds a row built from cols under the next id
func (t *Table[T]) Insert(ctx context.Context, q sqlx.ExtContext, cols map[string]interface{}) (*T, error) {
	defer t.db.write(q)()

	var row T
	if err := t.apply(&row, cols); err != nil {
		return nil, err
	}
	if err := t.checkRow(row, cols); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	reflect.ValueOf(&row).Elem().Field(t.columns["id"]).SetInt(t.nextID)
	if err := t.checkUnique(row); err != nil {
		return nil, err
	}
	t.rows[t.nextID] = row
	return &row, nil
}

// Patch applies cols to one row
func (t *Table[T]) Patch(ctx context.Context, q sqlx.ExtContext, id int64, cols map[string]interface{}) (*T, error) {
	defer t.db.write(q)()

	current, err := t.find(id)
	if err != nil {
		return nil, err
	}

	row := *current
	if err := t.apply(&row, cols); err != nil {
		return nil, err
	}
	if err := t.checkRow(row, cols); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return nil, &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
	}
	if err := t.checkUnique(row); err != nil {
		return nil, err
	}
	t.rows[id] = row
	return &row, nil
}

// Delete removes one row, cascading to or restricted by referencing rows
func (t *Table[T]) Delete(ctx context.Context, q sqlx.ExtContext, id int64) error {
	defer t.db.write(q)()

	if !t.exists(id) {
		return &apperr.NotFoundError{Entity: t.spec.Entity, ID: id}
	}

	for _, dep := range t.dependents {
		if dep.action == Restrict && dep.child.references(dep.column, id) {
			return &apperr.ConflictError{
				Constraint: fmt.Sprintf("%s_%s_fkey", t.spec.Name, dep.column),
				Detail:     fmt.Sprintf("%s %d is still referenced", t.spec.Entity, id),
			}
		}
	}

	t.mu.Lock()
	delete(t.rows, id)
	t.mu.Unlock()

	for _, dep := range t.dependents {
		if dep.action == Cascade {
			dep.child.removeWhere(dep.column, id)
		}
	}
	return nil
}

// DeleteBefore removes every row whose time column is older than cutoff
func (t *Table[T]) DeleteBefore(ctx context.Context, q sqlx.ExtContext, cutoff int64) (int64, error) {
	field, ok := t.columns[t.spec.TimeColumn]
	if t.spec.TimeColumn == "" || !ok {
		return 0, fmt.Errorf("table %s has no time column", t.spec.Name)
	}

	defer t.db.write(q)()
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int64
	for id, row := range t.rows {
		if reflect.ValueOf(row).Field(field).Int() < cutoff {
			delete(t.rows, id)
			removed++
		}
	}
	return removed, nil
}

func (t *Table[T]) snapshot() func() {
	t.mu.RLock()
	saved := make(map[int64]T, len(t.rows))
	for id, row := range t.rows {
		saved[id] = row
	}
	t.mu.RUnlock()

	return func() {
		t.mu.Lock()
		t.rows = saved
		t.mu.Unlock()
	}
}

func (t *Table[T]) exists(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rows[id]
	return ok
}

func (t *Table[T]) addDependent(d dependent, column string, action Action) {
	t.dependents = append(t.dependents, link{child: d, column: column, action: action})
}

func (t *Table[T]) references(column string, id int64) bool {
	field := t.columns[column]

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if reflect.ValueOf(row).Field(field).Int() == id {
			return true
		}
	}
	return false
}

func (t *Table[T]) removeWhere(column string, id int64) {
	field := t.columns[column]

	t.mu.Lock()
	var removed []int64
	for key, row := range t.rows {
		if reflect.ValueOf(row).Field(field).Int() == id {
			delete(t.rows, key)
			removed = append(removed, key)
		}
	}
	t.mu.Unlock()

	for _, key := range removed {
		for _, dep := range t.dependents {
			if dep.action == Cascade {
				dep.child.removeWhere(dep.column, key)
			}
		}
	}
}

func (t *Table[T]) id(row T) int64 {
	return reflect.ValueOf(row).Field(t.columns["id"]).Int()
}

func (t *Table[T]) apply(row *T, cols map[string]interface{}) error {
	rv := reflect.ValueOf(row).Elem()
	for name, value := range cols {
		field, ok := t.columns[name]
		if !ok || !t.writable[name] {
			return fmt.Errorf("column %s is not writable on %s", name, t.spec.Name)
		}
		if err := setColumn(rv, field, value); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	return nil
}

func (t *Table[T]) checkFilter(filter model.Filter) error {
	for key := range filter.Equals {
		if !t.filterable[key] {
			return apperr.NewValidationError(key, "filter", fmt.Sprintf("%s cannot be filtered by %s", t.spec.Entity, key))
		}
	}
	if (filter.From != nil || filter.To != nil) && t.spec.TimeColumn == "" {
		return apperr.NewValidationError("from", "filter", fmt.Sprintf("%s has no time range", t.spec.Entity))
	}
	return nil
}

func (t *Table[T]) matches(row T, filter model.Filter) bool {
	rv := reflect.ValueOf(row)
	for key, want := range filter.Equals {
		if !sameValue(rv.Field(t.columns[key]).Interface(), want) {
			return false
		}
	}

	if len(filter.IDs) > 0 {
		id := t.id(row)
		found := false
		for _, want := range filter.IDs {
			if want == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.From != nil || filter.To != nil {
		ts := rv.Field(t.columns[t.spec.TimeColumn]).Int()
		if filter.From != nil && ts < *filter.From {
			return false
		}
		if filter.To != nil && ts > *filter.To {
			return false
		}
	}
	return true
}

func (t *Table[T]) checkRow(row T, cols map[string]interface{}) error {
	for _, check := range t.constraints.Checks {
		if !check.Holds(row) {
			return &apperr.ConflictError{
				Constraint: check.Name,
				Detail:     fmt.Sprintf("Failing row violates check constraint %q", check.Name),
			}
		}
	}

	rv := reflect.ValueOf(row)
	for _, ref := range t.constraints.References {
		if _, touched := cols[ref.Column]; !touched {
			continue
		}
		id := rv.Field(t.columns[ref.Column]).Int()
		if !ref.Parent.exists(id) {
			return &apperr.ConflictError{
				Constraint: fmt.Sprintf("%s_%s_fkey", t.spec.Name, ref.Column),
				Detail:     fmt.Sprintf("Key (%s)=(%d) is not present", ref.Column, id),
			}
		}
	}
	return nil
}

// checkUnique must run with t.mu held
func (t *Table[T]) checkUnique(row T) error {
	rv := reflect.ValueOf(row)
	id := t.id(row)
	for _, columns := range t.constraints.Unique {
		for otherID, other := range t.rows {
			if otherID == id {
				continue
			}
			ov := reflect.ValueOf(other)
			same := true
			for _, column := range columns {
				if !sameValue(rv.Field(t.columns[column]).Interface(), ov.Field(t.columns[column]).Interface()) {
					same = false
					break
				}
			}
			if same {
				return &apperr.ConflictError{
					Constraint: fmt.Sprintf("%s_%s_key", t.spec.Name, strings.Join(columns, "_")),
					Detail:     fmt.Sprintf("Key (%s) already exists", strings.Join(columns, ", ")),
				}
			}
		}
	}
	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
