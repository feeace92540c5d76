package model

// StrategyValue is a point-in-time valuation of a strategy
type StrategyValue struct {
	ID         int64 `json:"id" db:"id"`
	StrategyID int64 `json:"strategyId" db:"strategy_id"`
	Timestamp  int64 `json:"timestamp" db:"timestamp"`
	ValueCents Cents `json:"valueCents" db:"value_cents"`
}

// StrategyValueCreate represents data for creating or replacing a valuation
type StrategyValueCreate struct {
	StrategyID int64 `json:"strategyId" validate:"required,gt=0"`
	ValueCents Cents `json:"valueCents"`
}

// Changes implements Payload
func (p StrategyValueCreate) Changes() Changes {
	return Changes{Columns: map[string]interface{}{
		"strategy_id": p.StrategyID,
		"value_cents": int64(p.ValueCents),
	}}
}

// StrategyValuePatch represents a partial valuation update
type StrategyValuePatch struct {
	ValueCents *Cents `json:"valueCents"`
}

// Changes implements Payload
func (p StrategyValuePatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.ValueCents != nil {
		cols["value_cents"] = int64(*p.ValueCents)
	}
	return Changes{Columns: cols}
}

// RowID implements Row
func (s StrategyValue) RowID() int64 {
	return s.ID
}
