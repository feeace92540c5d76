package model

import (
	"database/sql/driver"
	"errors"
)

// Status is the lifecycle flag shared by strategies and template configs
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// TemplateName identifies which template-config kind drives a strategy
type TemplateName string

const (
	TemplateNoOp                 TemplateName = "NoOp"
	TemplateSeaDogDiscountScheme TemplateName = "SeaDogDiscountScheme"
)

// Cents is a monetary amount in integer cents
type Cents int64

// RawJSON holds an optional structured JSON document stored in a JSONB column
type RawJSON []byte

// Value implements the driver.Valuer interface for RawJSON
func (j RawJSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface for RawJSON
func (j *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = RawJSON(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return nil
}

// MarshalJSON emits the stored document as-is, or null
func (j RawJSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON keeps a copy of the raw document
func (j *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Changes is the column-level view of an inbound payload: the scalar columns the
// payload carries, plus the symbol association list when the payload names one.
// A nil SymbolIDs means "leave associations alone"; an empty non-nil slice means
// "remove all associations".
type Changes struct {
	Columns   map[string]interface{}
	SymbolIDs []int64
}

// HasColumns reports whether the payload touches any scalar column
func (c Changes) HasColumns() bool {
	return len(c.Columns) > 0
}

// Payload is implemented by every inbound create/put/patch body
type Payload interface {
	Changes() Changes
}

// Row is implemented by every stored entity
type Row interface {
	RowID() int64
}

// UniqueIDs drops repeated ids, keeping the first occurrence of each
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
