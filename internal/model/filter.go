package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Filter narrows a list query. Equals keys are column names and are checked
// against the table's whitelist before reaching SQL.
type Filter struct {
	Equals     map[string]interface{}
	IDs        []int64
	From       *int64
	To         *int64
	PageNumber int
	PageSize   int
}

// Normalize clamps pagination to sane bounds
func (f Filter) Normalize() Filter {
	if f.PageNumber < 1 {
		f.PageNumber = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	} else if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset returns the row offset of the requested page
func (f Filter) Offset() int {
	return (f.PageNumber - 1) * f.PageSize
}

// Page is one page of an ordered list query
type Page[T any] struct {
	Items        []T
	PageNumber   int
	PageSize     int
	TotalResults int
	TotalPages   int
}

// TotalPages returns how many pages of size pageSize cover total rows
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
