package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query string
		want  PaginationParams
	}{
		{query: "", want: PaginationParams{PageNumber: 1, PageSize: 20}},
		{query: "pageNumber=3&pageSize=10", want: PaginationParams{PageNumber: 3, PageSize: 10}},
		{query: "pageNumber=0&pageSize=-4", want: PaginationParams{PageNumber: 1, PageSize: 20}},
		{query: "pageSize=9999", want: PaginationParams{PageNumber: 1, PageSize: 500}},
		{query: "pageNumber=abc", want: PaginationParams{PageNumber: 1, PageSize: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePaginationParams(c, 20, 500))
		})
	}
}

func TestSendPaginatedResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendPaginatedResponse(c, http.StatusOK, "ok", model.Page[int]{
		PageNumber:   2,
		PageSize:     10,
		TotalResults: 25,
		TotalPages:   3,
	})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, []interface{}{}, body["data"])
	assert.EqualValues(t, 25, body["totalResults"])
	assert.EqualValues(t, 3, body["totalPages"])
	assert.EqualValues(t, 10, body["pageSize"])
	assert.EqualValues(t, 2, body["pageNumber"])
}

func TestSendErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendErrorResponse(c, http.StatusNotFound, "Strategy with id 4 not found", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	assert.JSONEq(t, `{"status":"error","message":"Strategy with id 4 not found","data":null}`, w.Body.String())
}
