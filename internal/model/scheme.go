package model

import (
	"github.com/shopspring/decimal"
)

// SeaDogDiscountScheme is the template config of the SeaDogDiscountScheme
// strategy template: buy symbols trading below a percentile of their recent
// range, sell them once they recover past another percentile with a minimum gain.
// At most one scheme per strategy is active at any time.
type SeaDogDiscountScheme struct {
	ID                 int64           `json:"id" db:"id"`
	StrategyID         int64           `json:"strategyId" db:"strategy_id"`
	Status             Status          `json:"status" db:"status"`
	BuyAtPercentile    decimal.Decimal `json:"buyAtPercentile" db:"buy_at_percentile"`
	SellAtPercentile   decimal.Decimal `json:"sellAtPercentile" db:"sell_at_percentile"`
	MinimumGainPercent decimal.Decimal `json:"minimumGainPercent" db:"minimum_gain_percent"`
	TimeframeInDays    int             `json:"timeframeInDays" db:"timeframe_in_days"`
	BrokerAPIKey       string          `json:"brokerApiKey" db:"broker_api_key"`
	BrokerAPISecret    string          `json:"-" db:"broker_api_secret"` // sealed
}

// SchemeGraph is a scheme together with its symbols
type SchemeGraph struct {
	SeaDogDiscountScheme
	Symbols []Symbol
}

// SeaDogDiscountSchemeCreate represents data for creating or replacing a scheme
type SeaDogDiscountSchemeCreate struct {
	StrategyID         int64           `json:"strategyId" validate:"required,gt=0"`
	Status             Status          `json:"status" validate:"required,oneof=active inactive"`
	BuyAtPercentile    decimal.Decimal `json:"buyAtPercentile" validate:"dgte=0,dlte=100"`
	SellAtPercentile   decimal.Decimal `json:"sellAtPercentile" validate:"dgte=0,dlte=100"`
	MinimumGainPercent decimal.Decimal `json:"minimumGainPercent" validate:"dgte=0,dlte=1000"`
	TimeframeInDays    int             `json:"timeframeInDays" validate:"required,gt=0,lte=3650"`
	BrokerAPIKey       string          `json:"brokerApiKey" validate:"required,max=128"`
	BrokerAPISecret    string          `json:"brokerApiSecret" validate:"required,max=256"`
	SymbolIDs          []int64         `json:"symbolIds" validate:"omitempty,dive,gt=0"`
}

// Changes implements Payload
func (p SeaDogDiscountSchemeCreate) Changes() Changes {
	return Changes{
		Columns: map[string]interface{}{
			"strategy_id":          p.StrategyID,
			"status":               string(p.Status),
			"buy_at_percentile":    p.BuyAtPercentile,
			"sell_at_percentile":   p.SellAtPercentile,
			"minimum_gain_percent": p.MinimumGainPercent,
			"timeframe_in_days":    p.TimeframeInDays,
			"broker_api_key":       p.BrokerAPIKey,
			"broker_api_secret":    p.BrokerAPISecret,
		},
		SymbolIDs: p.SymbolIDs,
	}
}

// SeaDogDiscountSchemePatch represents a partial scheme update
type SeaDogDiscountSchemePatch struct {
	StrategyID         *int64           `json:"strategyId" validate:"omitempty,gt=0"`
	Status             *Status          `json:"status" validate:"omitempty,oneof=active inactive"`
	BuyAtPercentile    *decimal.Decimal `json:"buyAtPercentile" validate:"omitempty,dgte=0,dlte=100"`
	SellAtPercentile   *decimal.Decimal `json:"sellAtPercentile" validate:"omitempty,dgte=0,dlte=100"`
	MinimumGainPercent *decimal.Decimal `json:"minimumGainPercent" validate:"omitempty,dgte=0,dlte=1000"`
	TimeframeInDays    *int             `json:"timeframeInDays" validate:"omitempty,gt=0,lte=3650"`
	BrokerAPIKey       *string          `json:"brokerApiKey" validate:"omitempty,min=1,max=128"`
	BrokerAPISecret    *string          `json:"brokerApiSecret" validate:"omitempty,min=1,max=256"`
	SymbolIDs          []int64          `json:"symbolIds" validate:"omitempty,dive,gt=0"`
}

// Changes implements Payload
func (p SeaDogDiscountSchemePatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.StrategyID != nil {
		cols["strategy_id"] = *p.StrategyID
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.BuyAtPercentile != nil {
		cols["buy_at_percentile"] = *p.BuyAtPercentile
	}
	if p.SellAtPercentile != nil {
		cols["sell_at_percentile"] = *p.SellAtPercentile
	}
	if p.MinimumGainPercent != nil {
		cols["minimum_gain_percent"] = *p.MinimumGainPercent
	}
	if p.TimeframeInDays != nil {
		cols["timeframe_in_days"] = *p.TimeframeInDays
	}
	if p.BrokerAPIKey != nil {
		cols["broker_api_key"] = *p.BrokerAPIKey
	}
	if p.BrokerAPISecret != nil {
		cols["broker_api_secret"] = *p.BrokerAPISecret
	}
	return Changes{Columns: cols, SymbolIDs: p.SymbolIDs}
}

// RowID implements Row
func (s SeaDogDiscountScheme) RowID() int64 {
	return s.ID
}
