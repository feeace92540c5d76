// Package response turns stored rows and their loaded relations into wire
// bodies and refuses to emit a body that breaks its own schema.
package response

import (
	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/validator"

	"go.uber.org/zap"
)

// Assembler builds outbound bodies
type Assembler struct {
	validator *validator.Validator
	logger    *zap.Logger
}

// NewAssembler creates a new response assembler
func NewAssembler(v *validator.Validator, logger *zap.Logger) *Assembler {
	return &Assembler{
		validator: v,
		logger:    logger,
	}
}

// Strategy flattens a strategy graph. The symbols relation must be loaded.
func (a *Assembler) Strategy(g model.StrategyGraph) (StrategyBody, error) {
	if g.Symbols == nil {
		return StrategyBody{}, &apperr.MissingRelationError{Entity: "Strategy", Relation: "symbols"}
	}

	body := StrategyBody{
		ID:                   g.ID,
		Title:                g.Title,
		Status:               g.Status,
		StrategyTemplateName: g.StrategyTemplateName,
		SymbolIDs:            model.SymbolIDs(g.Symbols),
		CreatedAt:            g.CreatedAt,
	}
	return body, a.check("Strategy", body)
}

// Scheme flattens a scheme graph. The symbols relation must be loaded.
func (a *Assembler) Scheme(g model.SchemeGraph) (SchemeBody, error) {
	if g.Symbols == nil {
		return SchemeBody{}, &apperr.MissingRelationError{Entity: "SeaDogDiscountScheme", Relation: "symbols"}
	}

	body := SchemeBody{
		ID:                 g.ID,
		StrategyID:         g.StrategyID,
		Status:             g.Status,
		BuyAtPercentile:    g.BuyAtPercentile,
		SellAtPercentile:   g.SellAtPercentile,
		MinimumGainPercent: g.MinimumGainPercent,
		TimeframeInDays:    g.TimeframeInDays,
		BrokerAPIKey:       g.BrokerAPIKey,
		HasBrokerAPISecret: g.BrokerAPISecret != "",
		SymbolIDs:          model.SymbolIDs(g.Symbols),
	}
	return body, a.check("SeaDogDiscountScheme", body)
}

// Symbol converts a symbol row
func (a *Assembler) Symbol(s model.Symbol) (SymbolBody, error) {
	body := SymbolBody{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
	return body, a.check("Symbol", body)
}

// Order converts an order row
func (a *Assembler) Order(o model.Order) (OrderBody, error) {
	body := OrderBody{
		ID:              o.ID,
		StrategyID:      o.StrategyID,
		SymbolID:        o.SymbolID,
		Side:            o.Side,
		Quantity:        o.Quantity,
		LimitPriceCents: o.LimitPriceCents,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
	return body, a.check("Order", body)
}

// Position converts a position row
func (a *Assembler) Position(p model.Position) (PositionBody, error) {
	body := PositionBody{
		ID:                p.ID,
		StrategyID:        p.StrategyID,
		SymbolID:          p.SymbolID,
		Quantity:          p.Quantity,
		AveragePriceCents: p.AveragePriceCents,
		CreatedAt:         p.CreatedAt,
	}
	return body, a.check("Position", body)
}

// StrategyLog converts a log row
func (a *Assembler) StrategyLog(l model.StrategyLog) (StrategyLogBody, error) {
	body := StrategyLogBody{
		ID:         l.ID,
		StrategyID: l.StrategyID,
		Level:      l.Level,
		Message:    l.Message,
		Data:       l.Data,
		Timestamp:  l.Timestamp,
	}
	return body, a.check("StrategyLog", body)
}

// StrategyValue converts a valuation row
func (a *Assembler) StrategyValue(v model.StrategyValue) (StrategyValueBody, error) {
	body := StrategyValueBody{
		ID:         v.ID,
		StrategyID: v.StrategyID,
		Timestamp:  v.Timestamp,
		ValueCents: v.ValueCents,
	}
	return body, a.check("StrategyValue", body)
}

func (a *Assembler) check(name string, body interface{}) error {
	issues := a.validator.Struct(body)
	if len(issues) == 0 {
		return nil
	}

	err := &apperr.ResponseShapeError{Body: name, Issues: issues}
	a.logger.DPanic("Outbound body violates its schema", zap.String("body", name), zap.Error(err))
	return err
}
