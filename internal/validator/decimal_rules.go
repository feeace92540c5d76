package validator

import (
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// decimalRules are gt, gte and lte for decimal.Decimal fields, keyed by tag
var decimalRules = map[string]func(cmp int) bool{
	"dgt":  func(cmp int) bool { return cmp > 0 },
	"dgte": func(cmp int) bool { return cmp >= 0 },
	"dlte": func(cmp int) bool { return cmp <= 0 },
}

func compareDecimal(holds func(cmp int) bool) playground.Func {
	return func(fl playground.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return holds(value.Cmp(bound))
	}
}

// rule reports decimal tags under the name of the numeric rule they mirror
func rule(tag string) string {
	if _, ok := decimalRules[tag]; ok {
		return strings.TrimPrefix(tag, "d")
	}
	return tag
}
