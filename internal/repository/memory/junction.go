package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
)

const (
	ownerColumn  = "owner"
	symbolColumn = "symbol"
)

// Junction relates owner rows to symbols
type Junction struct {
	mu      sync.RWMutex
	db      *DB
	name    string
	ordered bool
	links   map[int64][]int64
	symbols *Table[model.Symbol]
}

// NewJunction creates a junction between owners and symbols. Deleting either
// side removes the junction rows.
func NewJunction(db *DB, name string, owners Parent, symbols *Table[model.Symbol], ordered bool) *Junction {
	j := &Junction{
		db:      db,
		name:    name,
		ordered: ordered,
		links:   make(map[int64][]int64),
		symbols: symbols,
	}
	owners.addDependent(j, ownerColumn, Cascade)
	symbols.addDependent(j, symbolColumn, Cascade)
	db.register(j)
	return j
}

// Replace makes symbolIDs the complete relation of owner
func (j *Junction) Replace(ctx context.Context, q sqlx.ExtContext, ownerID int64, symbolIDs []int64) error {
	defer j.db.write(q)()

	ids := model.UniqueIDs(symbolIDs)
	for _, id := range ids {
		if !j.symbols.exists(id) {
			return &apperr.ConflictError{
				Constraint: fmt.Sprintf("%s_symbol_id_fkey", j.name),
				Detail:     fmt.Sprintf("Key (symbol_id)=(%d) is not present", id),
			}
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if len(ids) == 0 {
		delete(j.links, ownerID)
		return nil
	}
	j.links[ownerID] = ids
	return nil
}

// UnrelateAll removes every junction row of owner
func (j *Junction) UnrelateAll(ctx context.Context, q sqlx.ExtContext, ownerID int64) error {
	defer j.db.write(q)()
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.links, ownerID)
	return nil
}

// Symbols loads the related symbols of every owner
func (j *Junction) Symbols(ctx context.Context, q sqlx.ExtContext, ownerIDs []int64) (map[int64][]model.Symbol, error) {
	defer j.db.read(q)()
	j.mu.RLock()
	defer j.mu.RUnlock()

	related := make(map[int64][]model.Symbol, len(ownerIDs))
	for _, owner := range ownerIDs {
		ids := append([]int64(nil), j.links[owner]...)
		if !j.ordered {
			sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		}

		symbols := make([]model.Symbol, 0, len(ids))
		for _, id := range ids {
			symbol, err := j.symbols.find(id)
			if err != nil {
				continue
			}
			symbols = append(symbols, *symbol)
		}
		related[owner] = symbols
	}
	return related, nil
}

func (j *Junction) snapshot() func() {
	j.mu.RLock()
	saved := make(map[int64][]int64, len(j.links))
	for owner, ids := range j.links {
		saved[owner] = ids
	}
	j.mu.RUnlock()

	return func() {
		j.mu.Lock()
		j.links = saved
		j.mu.Unlock()
	}
}

func (j *Junction) references(column string, id int64) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if column == ownerColumn {
		_, ok := j.links[id]
		return ok
	}
	for _, ids := range j.links {
		for _, symbolID := range ids {
			if symbolID == id {
				return true
			}
		}
	}
	return false
}

func (j *Junction) removeWhere(column string, id int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if column == ownerColumn {
		delete(j.links, id)
		return
	}
	for owner, ids := range j.links {
		kept := make([]int64, 0, len(ids))
		for _, symbolID := range ids {
			if symbolID != id {
				kept = append(kept, symbolID)
			}
		}
		if len(kept) == 0 {
			delete(j.links, owner)
		} else {
			j.links[owner] = kept
		}
	}
}
