package validator

import (
	"github.com/yourorg/strategy-config/internal/model"

	playground "github.com/go-playground/validator/v10"
)

// schemeCreateRules requires the buy percentile to sit below the sell percentile
func schemeCreateRules(sl playground.StructLevel) {
	scheme := sl.Current().Interface().(model.SeaDogDiscountSchemeCreate)

	if !scheme.BuyAtPercentile.LessThan(scheme.SellAtPercentile) {
		sl.ReportError(scheme.SellAtPercentile, "sellAtPercentile", "SellAtPercentile", "gtfield", "buyAtPercentile")
	}
}

// schemePatchRules applies the same ordering when a patch carries both percentiles.
// A patch carrying only one of them is checked against the stored row by the database.
func schemePatchRules(sl playground.StructLevel) {
	scheme := sl.Current().Interface().(model.SeaDogDiscountSchemePatch)
	if scheme.BuyAtPercentile == nil || scheme.SellAtPercentile == nil {
		return
	}

	if !scheme.BuyAtPercentile.LessThan(*scheme.SellAtPercentile) {
		sl.ReportError(*scheme.SellAtPercentile, "sellAtPercentile", "SellAtPercentile", "gtfield", "buyAtPercentile")
	}
}
