package utils

import (
	"strconv"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PaginationParams holds pagination-related query parameters
type PaginationParams struct {
	PageNumber int
	PageSize   int
}

// ParsePaginationParams parses pageNumber and pageSize from the request,
// falling back to defaults and capping the page size
func ParsePaginationParams(c *gin.Context, defaultSize int, maxSize int) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("pageNumber", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultSize)))

	if page < 1 {
		page = 1
	}

	if size < 1 {
		size = defaultSize
	} else if size > maxSize {
		size = maxSize
	}

	return PaginationParams{
		PageNumber: page,
		PageSize:   size,
	}
}

// Envelope is the body of every API response
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageEnvelope is the body of list responses
type PageEnvelope struct {
	Envelope
	PageSize     int `json:"pageSize"`
	PageNumber   int `json:"pageNumber"`
	TotalResults int `json:"totalResults"`
	TotalPages   int `json:"totalPages"`
}

// SendResponse sends a success envelope
func SendResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// SendPaginatedResponse sends a success envelope carrying one page of results
func SendPaginatedResponse[T any](c *gin.Context, statusCode int, message string, page model.Page[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	c.JSON(statusCode, PageEnvelope{
		Envelope: Envelope{
			Status:  StatusSuccess,
			Message: message,
			Data:    items,
		},
		PageSize:     page.PageSize,
		PageNumber:   page.PageNumber,
		TotalResults: page.TotalResults,
		TotalPages:   page.TotalPages,
	})
}

// SendErrorResponse sends an error envelope; data carries details such as validation issues
func SendErrorResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.AbortWithStatusJSON(statusCode, Envelope{
		Status:  StatusError,
		Message: message,
		Data:    data,
	})
}
