package memory

import (
	"context"

	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/repository"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SchemeTable adds sibling demotion to the scheme table
type SchemeTable struct {
	*Table[model.SeaDogDiscountScheme]
}

// DeactivateSiblings marks every other active scheme of the strategy inactive
func (t *SchemeTable) DeactivateSiblings(ctx context.Context, q sqlx.ExtContext, strategyID, exceptID int64) (int64, error) {
	defer t.db.write(q)()
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed int64
	for id, row := range t.rows {
		if row.StrategyID == strategyID && id != exceptID && row.Status == model.StatusActive {
			row.Status = model.StatusInactive
			t.rows[id] = row
			changed++
		}
	}
	return changed, nil
}

// Backend is the full set of in-memory stores with the relational rules of
// the Postgres schema
type Backend struct {
	DB              *DB
	Strategies      *Table[model.Strategy]
	StrategySymbols *Junction
	Symbols         *Table[model.Symbol]
	Schemes         *SchemeTable
	SchemeSymbols   *Junction
	Orders          *Table[model.Order]
	Positions       *Table[model.Position]
	StrategyLogs    *Table[model.StrategyLog]
	StrategyValues  *Table[model.StrategyValue]
}

// NewBackend creates empty stores mirroring the Postgres tables
func NewBackend(logger *zap.Logger) *Backend {
	db := NewDB(logger)

	strategies := NewTable[model.Strategy](db, repository.StrategyTable, Constraints{})
	symbols := NewTable[model.Symbol](db, repository.SymbolTable, Constraints{
		Unique: [][]string{{"name"}},
	})
	byStrategy := Reference{Column: "strategy_id", Parent: strategies, OnDelete: Cascade}
	bySymbol := Reference{Column: "symbol_id", Parent: symbols, OnDelete: Restrict}

	schemes := &SchemeTable{NewTable[model.SeaDogDiscountScheme](db, repository.SchemeTable, Constraints{
		References: []Reference{byStrategy},
		Checks: []Check{{
			Name: "sea_dog_discount_schemes_percentile_order",
			Holds: func(row interface{}) bool {
				scheme := row.(model.SeaDogDiscountScheme)
				return scheme.BuyAtPercentile.LessThan(scheme.SellAtPercentile)
			},
		}},
	})}

	return &Backend{
		DB:              db,
		Strategies:      strategies,
		StrategySymbols: NewJunction(db, "strategy_symbols", strategies, symbols, true),
		Symbols:         symbols,
		Schemes:         schemes,
		SchemeSymbols:   NewJunction(db, "sea_dog_discount_scheme_symbols", schemes, symbols, false),
		Orders: NewTable[model.Order](db, repository.OrderTable, Constraints{
			References: []Reference{byStrategy, bySymbol},
		}),
		Positions: NewTable[model.Position](db, repository.PositionTable, Constraints{
			Unique:     [][]string{{"strategy_id", "symbol_id"}},
			References: []Reference{byStrategy, bySymbol},
			Checks: []Check{{
				Name: "positions_quantity_check",
				Holds: func(row interface{}) bool {
					return row.(model.Position).Quantity.IsPositive()
				},
			}},
		}),
		StrategyLogs: NewTable[model.StrategyLog](db, repository.StrategyLogTable, Constraints{
			References: []Reference{byStrategy},
		}),
		StrategyValues: NewTable[model.StrategyValue](db, repository.StrategyValueTable, Constraints{
			References: []Reference{byStrategy},
		}),
	}
}
