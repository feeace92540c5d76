package model

import (
	"time"
)

// Symbol represents a tradable market symbol
type Symbol struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SymbolCreate represents data for creating a symbol
type SymbolCreate struct {
	Name string `json:"name" validate:"required,max=32"`
}

// Changes implements Payload
func (p SymbolCreate) Changes() Changes {
	return Changes{Columns: map[string]interface{}{"name": p.Name}}
}

// SymbolIDs flattens a symbol relation into its id list, keeping order
func SymbolIDs(symbols []Symbol) []int64 {
	ids := make([]int64, len(symbols))
	for i, s := range symbols {
		ids[i] = s.ID
	}
	return ids
}

// RowID implements Row
func (s Symbol) RowID() int64 {
	return s.ID
}
