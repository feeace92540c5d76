package repository

import (
	"context"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Table layouts shared by the Postgres store and the in-memory backend
var (
	StrategyTable = TableSpec{
		Entity:     "Strategy",
		Name:       "strategies",
		Writable:   []string{"title", "status", "strategy_template_name", "created_at"},
		Filterable: []string{"status", "strategy_template_name"},
	}
	SymbolTable = TableSpec{
		Entity:     "Symbol",
		Name:       "symbols",
		Writable:   []string{"name", "created_at"},
		Filterable: []string{"name"},
	}
	SchemeTable = TableSpec{
		Entity: "SeaDogDiscountScheme",
		Name:   "sea_dog_discount_schemes",
		Writable: []string{
			"strategy_id", "status", "buy_at_percentile", "sell_at_percentile",
			"minimum_gain_percent", "timeframe_in_days", "broker_api_key", "broker_api_secret",
		},
		Filterable: []string{"strategy_id", "status"},
	}
	OrderTable = TableSpec{
		Entity:     "Order",
		Name:       "orders",
		Writable:   []string{"strategy_id", "symbol_id", "side", "quantity", "limit_price_cents", "status", "created_at"},
		Filterable: []string{"strategy_id", "symbol_id", "side", "status"},
	}
	PositionTable = TableSpec{
		Entity:     "Position",
		Name:       "positions",
		Writable:   []string{"strategy_id", "symbol_id", "quantity", "average_price_cents", "created_at"},
		Filterable: []string{"strategy_id", "symbol_id"},
	}
	StrategyLogTable = TableSpec{
		Entity:     "StrategyLog",
		Name:       "strategy_logs",
		Writable:   []string{"strategy_id", "level", "message", "data", "timestamp"},
		Filterable: []string{"strategy_id", "level"},
		TimeColumn: "timestamp",
	}
	StrategyValueTable = TableSpec{
		Entity:     "StrategyValue",
		Name:       "strategy_values",
		Writable:   []string{"strategy_id", "value_cents", "timestamp"},
		Filterable: []string{"strategy_id"},
		TimeColumn: "timestamp",
	}
)

// NewStrategyRepository creates the strategies table store
func NewStrategyRepository(logger *zap.Logger) *Table[model.Strategy] {
	return NewTable[model.Strategy](StrategyTable, logger)
}

// NewStrategySymbols creates the ordered strategy watch-list junction
func NewStrategySymbols(logger *zap.Logger) *Junction {
	return NewJunction(JunctionSpec{
		Table:          "strategy_symbols",
		OwnerColumn:    "strategy_id",
		SymbolColumn:   "symbol_id",
		PositionColumn: "position",
	}, logger)
}

// NewSymbolRepository creates the symbols table store
func NewSymbolRepository(logger *zap.Logger) *Table[model.Symbol] {
	return NewTable[model.Symbol](SymbolTable, logger)
}

// NewSchemeSymbols creates the unordered scheme↔symbol junction
func NewSchemeSymbols(logger *zap.Logger) *Junction {
	return NewJunction(JunctionSpec{
		Table:        "sea_dog_discount_scheme_symbols",
		OwnerColumn:  "scheme_id",
		SymbolColumn: "symbol_id",
	}, logger)
}

// NewOrderRepository creates the orders table store
func NewOrderRepository(logger *zap.Logger) *Table[model.Order] {
	return NewTable[model.Order](OrderTable, logger)
}

// NewPositionRepository creates the positions table store
func NewPositionRepository(logger *zap.Logger) *Table[model.Position] {
	return NewTable[model.Position](PositionTable, logger)
}

// NewStrategyLogRepository creates the strategy_logs table store
func NewStrategyLogRepository(logger *zap.Logger) *Table[model.StrategyLog] {
	return NewTable[model.StrategyLog](StrategyLogTable, logger)
}

// NewStrategyValueRepository creates the strategy_values table store
func NewStrategyValueRepository(logger *zap.Logger) *Table[model.StrategyValue] {
	return NewTable[model.StrategyValue](StrategyValueTable, logger)
}

// SchemeRepository is the SeaDogDiscountScheme table store plus the sibling
// demotion used to keep one active scheme per strategy
type SchemeRepository struct {
	*Table[model.SeaDogDiscountScheme]
}

// NewSchemeRepository creates the sea_dog_discount_schemes table store
func NewSchemeRepository(logger *zap.Logger) *SchemeRepository {
	return &SchemeRepository{
		Table: NewTable[model.SeaDogDiscountScheme](SchemeTable, logger),
	}
}

// DeactivateSiblings marks every other active scheme of the strategy inactive
func (r *SchemeRepository) DeactivateSiblings(ctx context.Context, q sqlx.ExtContext, strategyID, exceptID int64) (int64, error) {
	query := q.Rebind(`
		UPDATE sea_dog_discount_schemes
		SET status = ?
		WHERE strategy_id = ? AND id <> ? AND status = ?`)

	result, err := q.ExecContext(ctx, query, string(model.StatusInactive), strategyID, exceptID, string(model.StatusActive))
	if err != nil {
		err = classify(err)
		r.logger.Error("Failed to deactivate sibling schemes",
			zap.Int64("strategy_id", strategyID),
			zap.Int64("scheme_id", exceptID),
			zap.Error(err),
		)
		return 0, err
	}
	return result.RowsAffected()
}
