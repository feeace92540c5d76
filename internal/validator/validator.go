// Package validator decodes inbound payloads and checks them, and outbound
// bodies, against their struct tags.
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator wraps a configured go-playground validator
type Validator struct {
	validate *playground.Validate
}

// New creates a validator with the decimal type and the cross-field rules registered
func New() *Validator {
	v := playground.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals are validated in their exact string form by the dgt, dgte and dlte tags
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	for tag, holds := range decimalRules {
		if err := v.RegisterValidation(tag, compareDecimal(holds)); err != nil {
			panic(err)
		}
	}

	v.RegisterStructValidation(schemeCreateRules, model.SeaDogDiscountSchemeCreate{})
	v.RegisterStructValidation(schemePatchRules, model.SeaDogDiscountSchemePatch{})

	return &Validator{validate: v}
}

// Struct validates s and returns its issues, nil when valid
func (v *Validator) Struct(s interface{}) []apperr.Issue {
	return toIssues("", v.validate.Struct(s))
}

// Identified is a payload addressed to an existing row
type Identified[P any] struct {
	ID      int64
	Payload P
}

// UnmarshalJSON reads the id and decodes the rest of the object as the payload
func (i *Identified[P]) UnmarshalJSON(data []byte) error {
	var head struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.ID != nil {
		i.ID = *head.ID
	}
	return json.Unmarshal(data, &i.Payload)
}

// DecodeOne decodes and validates a single JSON object
func DecodeOne[P any](v *Validator, body []byte) (P, error) {
	var payload P
	if err := decode(body, &payload); err != nil {
		return payload, err
	}
	if issues := v.Struct(payload); len(issues) > 0 {
		return payload, &apperr.ValidationError{Issues: issues}
	}
	return payload, nil
}

// DecodeList decodes and validates a non-empty JSON array of payloads
func DecodeList[P any](v *Validator, body []byte) ([]P, error) {
	var payloads []P
	if err := decode(body, &payloads); err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, apperr.NewValidationError("", "min", "at least one item is required")
	}

	var issues []apperr.Issue
	for i, payload := range payloads {
		issues = append(issues, toIssues(index(i), v.validate.Struct(payload))...)
	}
	if len(issues) > 0 {
		return nil, &apperr.ValidationError{Issues: issues}
	}
	return payloads, nil
}

// DecodeIdentifiedList decodes and validates a non-empty JSON array of
// payloads that each carry the id of the row they change
func DecodeIdentifiedList[P any](v *Validator, body []byte) ([]Identified[P], error) {
	var items []Identified[P]
	if err := decode(body, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NewValidationError("", "min", "at least one item is required")
	}

	var issues []apperr.Issue
	for i, item := range items {
		if item.ID <= 0 {
			issues = append(issues, apperr.Issue{Path: index(i) + ".id", Rule: "required", Message: "must be a positive id"})
		}
		issues = append(issues, toIssues(index(i), v.validate.Struct(item.Payload))...)
	}
	if len(issues) > 0 {
		return nil, &apperr.ValidationError{Issues: issues}
	}
	return items, nil
}

func decode(body []byte, dst interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.NewValidationError("", "required", "request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.NewValidationError(typeErr.Field, "type", fmt.Sprintf("must be %s", typeErr.Type))
		}
		return apperr.NewValidationError("", "json", err.Error())
	}
	return nil
}

func index(i int) string {
	return fmt.Sprintf("[%d]", i)
}

func toIssues(prefix string, err error) []apperr.Issue {
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []apperr.Issue{{Path: prefix, Rule: "invalid", Message: err.Error()}}
	}

	issues := make([]apperr.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		if dot := strings.Index(path, "."); dot >= 0 {
			path = path[dot+1:]
		}
		if prefix != "" {
			path = prefix + "." + path
		}
		issues = append(issues, apperr.Issue{
			Path:    path,
			Rule:    rule(fe.Tag()),
			Message: message(fe),
		})
	}
	return issues
}

func message(fe playground.FieldError) string {
	switch rule(fe.Tag()) {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gtfield":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
