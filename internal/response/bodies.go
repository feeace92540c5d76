package response

import (
	"time"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/shopspring/decimal"
)

// StrategyBody is the wire form of a strategy; symbolIds keeps watch-list priority
type StrategyBody struct {
	ID                   int64              `json:"id" validate:"gt=0"`
	Title                string             `json:"title" validate:"required,max=255"`
	Status               model.Status       `json:"status" validate:"oneof=active inactive"`
	StrategyTemplateName model.TemplateName `json:"strategyTemplateName" validate:"oneof=NoOp SeaDogDiscountScheme"`
	SymbolIDs            []int64            `json:"symbolIds" validate:"required,dive,gt=0"`
	CreatedAt            time.Time          `json:"createdAt" validate:"required"`
}

// SymbolBody is the wire form of a symbol
type SymbolBody struct {
	ID        int64     `json:"id" validate:"gt=0"`
	Name      string    `json:"name" validate:"required,max=32"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// SchemeBody is the wire form of a SeaDogDiscountScheme. The broker secret is
// never echoed back; clients only learn whether one is stored.
type SchemeBody struct {
	ID                 int64           `json:"id" validate:"gt=0"`
	StrategyID         int64           `json:"strategyId" validate:"gt=0"`
	Status             model.Status    `json:"status" validate:"oneof=active inactive"`
	BuyAtPercentile    decimal.Decimal `json:"buyAtPercentile" validate:"dgte=0,dlte=100"`
	SellAtPercentile   decimal.Decimal `json:"sellAtPercentile" validate:"dgte=0,dlte=100"`
	MinimumGainPercent decimal.Decimal `json:"minimumGainPercent" validate:"dgte=0"`
	TimeframeInDays    int             `json:"timeframeInDays" validate:"gt=0"`
	BrokerAPIKey       string          `json:"brokerApiKey" validate:"required"`
	HasBrokerAPISecret bool            `json:"hasBrokerApiSecret"`
	SymbolIDs          []int64         `json:"symbolIds" validate:"required,dive,gt=0"`
}

// OrderBody is the wire form of an order
type OrderBody struct {
	ID              int64             `json:"id" validate:"gt=0"`
	StrategyID      int64             `json:"strategyId" validate:"gt=0"`
	SymbolID        int64             `json:"symbolId" validate:"gt=0"`
	Side            model.OrderSide   `json:"side" validate:"oneof=buy sell"`
	Quantity        decimal.Decimal   `json:"quantity" validate:"dgt=0"`
	LimitPriceCents model.Cents       `json:"limitPriceCents" validate:"gte=0"`
	Status          model.OrderStatus `json:"status" validate:"oneof=open filled cancelled"`
	CreatedAt       time.Time         `json:"createdAt" validate:"required"`
}

// PositionBody is the wire form of a position
type PositionBody struct {
	ID                int64           `json:"id" validate:"gt=0"`
	StrategyID        int64           `json:"strategyId" validate:"gt=0"`
	SymbolID          int64           `json:"symbolId" validate:"gt=0"`
	Quantity          decimal.Decimal `json:"quantity" validate:"dgt=0"`
	AveragePriceCents model.Cents     `json:"averagePriceCents" validate:"gte=0"`
	CreatedAt         time.Time       `json:"createdAt" validate:"required"`
}

// StrategyLogBody is the wire form of a strategy log line
type StrategyLogBody struct {
	ID         int64          `json:"id" validate:"gt=0"`
	StrategyID int64          `json:"strategyId" validate:"gt=0"`
	Level      model.LogLevel `json:"level" validate:"oneof=debug info warn error"`
	Message    string         `json:"message" validate:"required"`
	Data       model.RawJSON  `json:"data"`
	Timestamp  int64          `json:"timestamp" validate:"gt=0"`
}

// StrategyValueBody is the wire form of a strategy valuation
type StrategyValueBody struct {
	ID         int64       `json:"id" validate:"gt=0"`
	StrategyID int64       `json:"strategyId" validate:"gt=0"`
	Timestamp  int64       `json:"timestamp" validate:"gt=0"`
	ValueCents model.Cents `json:"valueCents"`
}
