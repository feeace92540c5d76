package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the open holding of one symbol by one strategy.
// (strategy_id, symbol_id) is unique and quantity is always positive.
type Position struct {
	ID                int64           `json:"id" db:"id"`
	StrategyID        int64           `json:"strategyId" db:"strategy_id"`
	SymbolID          int64           `json:"symbolId" db:"symbol_id"`
	Quantity          decimal.Decimal `json:"quantity" db:"quantity"`
	AveragePriceCents Cents           `json:"averagePriceCents" db:"average_price_cents"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

// PositionCreate represents data for creating or replacing a position
type PositionCreate struct {
	StrategyID        int64           `json:"strategyId" validate:"required,gt=0"`
	SymbolID          int64           `json:"symbolId" validate:"required,gt=0"`
	Quantity          decimal.Decimal `json:"quantity" validate:"dgt=0"`
	AveragePriceCents Cents           `json:"averagePriceCents" validate:"gte=0"`
}

// Changes implements Payload
func (p PositionCreate) Changes() Changes {
	return Changes{Columns: map[string]interface{}{
		"strategy_id":         p.StrategyID,
		"symbol_id":           p.SymbolID,
		"quantity":            p.Quantity,
		"average_price_cents": int64(p.AveragePriceCents),
	}}
}

// PositionPatch represents a partial position update
type PositionPatch struct {
	Quantity          *decimal.Decimal `json:"quantity" validate:"omitempty,dgt=0"`
	AveragePriceCents *Cents           `json:"averagePriceCents" validate:"omitempty,gte=0"`
}

// Changes implements Payload
func (p PositionPatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.AveragePriceCents != nil {
		cols["average_price_cents"] = int64(*p.AveragePriceCents)
	}
	return Changes{Columns: cols}
}

// RowID implements Row
func (p Position) RowID() int64 {
	return p.ID
}
