package model

import (
	"time"
)

// Strategy represents a configured trading strategy
type Strategy struct {
	ID                   int64        `json:"id" db:"id"`
	Title                string       `json:"title" db:"title"`
	Status               Status       `json:"status" db:"status"`
	StrategyTemplateName TemplateName `json:"strategyTemplateName" db:"strategy_template_name"`
	CreatedAt            time.Time    `json:"createdAt" db:"created_at"`
}

// StrategyGraph is a strategy together with its priority-ordered symbols.
// Symbols is nil until the relation has been loaded.
type StrategyGraph struct {
	Strategy
	Symbols []Symbol
}

// StrategyCreate represents data for creating or replacing a strategy
type StrategyCreate struct {
	Title                string       `json:"title" validate:"required,max=255"`
	Status               Status       `json:"status" validate:"required,oneof=active inactive"`
	StrategyTemplateName TemplateName `json:"strategyTemplateName" validate:"required,oneof=NoOp SeaDogDiscountScheme"`
	SymbolIDs            []int64      `json:"symbolIds" validate:"omitempty,dive,gt=0"`
}

// Changes implements Payload
func (p StrategyCreate) Changes() Changes {
	return Changes{
		Columns: map[string]interface{}{
			"title":                  p.Title,
			"status":                 string(p.Status),
			"strategy_template_name": string(p.StrategyTemplateName),
		},
		SymbolIDs: p.SymbolIDs,
	}
}

// StrategyPatch represents a partial strategy update
type StrategyPatch struct {
	Title                *string       `json:"title" validate:"omitempty,min=1,max=255"`
	Status               *Status       `json:"status" validate:"omitempty,oneof=active inactive"`
	StrategyTemplateName *TemplateName `json:"strategyTemplateName" validate:"omitempty,oneof=NoOp SeaDogDiscountScheme"`
	SymbolIDs            []int64       `json:"symbolIds" validate:"omitempty,dive,gt=0"`
}

// Changes implements Payload
func (p StrategyPatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.StrategyTemplateName != nil {
		cols["strategy_template_name"] = string(*p.StrategyTemplateName)
	}
	return Changes{Columns: cols, SymbolIDs: p.SymbolIDs}
}

// RowID implements Row
func (s Strategy) RowID() int64 {
	return s.ID
}
