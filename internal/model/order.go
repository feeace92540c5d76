package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderStatus tracks an order's lifecycle as recorded by the strategy runner
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a buy or sell order placed on behalf of a strategy
type Order struct {
	ID              int64           `json:"id" db:"id"`
	StrategyID      int64           `json:"strategyId" db:"strategy_id"`
	SymbolID        int64           `json:"symbolId" db:"symbol_id"`
	Side            OrderSide       `json:"side" db:"side"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	LimitPriceCents Cents           `json:"limitPriceCents" db:"limit_price_cents"`
	Status          OrderStatus     `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

// OrderCreate represents data for creating or replacing an order
type OrderCreate struct {
	StrategyID      int64           `json:"strategyId" validate:"required,gt=0"`
	SymbolID        int64           `json:"symbolId" validate:"required,gt=0"`
	Side            OrderSide       `json:"side" validate:"required,oneof=buy sell"`
	Quantity        decimal.Decimal `json:"quantity" validate:"dgt=0"`
	LimitPriceCents Cents           `json:"limitPriceCents" validate:"gte=0"`
	Status          OrderStatus     `json:"status" validate:"required,oneof=open filled cancelled"`
}

// Changes implements Payload
func (p OrderCreate) Changes() Changes {
	return Changes{Columns: map[string]interface{}{
		"strategy_id":       p.StrategyID,
		"symbol_id":         p.SymbolID,
		"side":              string(p.Side),
		"quantity":          p.Quantity,
		"limit_price_cents": int64(p.LimitPriceCents),
		"status":            string(p.Status),
	}}
}

// OrderPatch represents a partial order update
type OrderPatch struct {
	StrategyID      *int64           `json:"strategyId" validate:"omitempty,gt=0"`
	SymbolID        *int64           `json:"symbolId" validate:"omitempty,gt=0"`
	Side            *OrderSide       `json:"side" validate:"omitempty,oneof=buy sell"`
	Quantity        *decimal.Decimal `json:"quantity" validate:"omitempty,dgt=0"`
	LimitPriceCents *Cents           `json:"limitPriceCents" validate:"omitempty,gte=0"`
	Status          *OrderStatus     `json:"status" validate:"omitempty,oneof=open filled cancelled"`
}

// Changes implements Payload
func (p OrderPatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.StrategyID != nil {
		cols["strategy_id"] = *p.StrategyID
	}
	if p.SymbolID != nil {
		cols["symbol_id"] = *p.SymbolID
	}
	if p.Side != nil {
		cols["side"] = string(*p.Side)
	}
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.LimitPriceCents != nil {
		cols["limit_price_cents"] = int64(*p.LimitPriceCents)
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	return Changes{Columns: cols}
}

// RowID implements Row
func (o Order) RowID() int64 {
	return o.ID
}
