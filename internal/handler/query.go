package handler

import (
	"strconv"
	"strings"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/utils"

	"github.com/gin-gonic/gin"
)

// QueryFilter maps a list query parameter onto an equality predicate
type QueryFilter struct {
	Param   string
	Column  string
	Numeric bool
}

// parseFilter reads pagination, the ids list, the time range and the
// resource's equality filters from the query string
func parseFilter(c *gin.Context, filters []QueryFilter) (model.Filter, error) {
	params := utils.ParsePaginationParams(c, model.DefaultPageSize, model.MaxPageSize)
	filter := model.Filter{
		PageNumber: params.PageNumber,
		PageSize:   params.PageSize,
	}

	ids, err := parseIDList(c.Query("ids"), "ids")
	if err != nil {
		return filter, err
	}
	filter.IDs = ids

	if filter.From, err = parseOptionalInt(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseOptionalInt(c, "to"); err != nil {
		return filter, err
	}

	for _, f := range filters {
		raw, ok := c.GetQuery(f.Param)
		if !ok || raw == "" {
			continue
		}
		if filter.Equals == nil {
			filter.Equals = map[string]interface{}{}
		}
		if !f.Numeric {
			filter.Equals[f.Column] = raw
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return filter, apperr.NewValidationError(f.Param, "type", "must be a positive integer")
		}
		filter.Equals[f.Column] = n
	}

	return filter, nil
}

// parseIDList parses a comma separated list of positive ids
func parseIDList(raw, param string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, apperr.NewValidationError(param, "type", "must be a comma separated list of positive ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalInt(c *gin.Context, param string) (*int64, error) {
	raw := c.Query(param)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.NewValidationError(param, "type", "must be an integer")
	}
	return &n, nil
}

// pathID reads the :id path parameter
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewValidationError("id", "type", "must be a positive id")
	}
	return id, nil
}
