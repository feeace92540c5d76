package handler

import (
	"errors"
	"net/http"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised to clients whose transaction lost a serialization race
const retryAfterSeconds = "1"

// notFoundData identifies the missing row in a 404 response
type notFoundData struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id"`
}

// respondError maps the error taxonomy onto HTTP responses. Internal errors
// are checked first since some of them wrap a NotFoundError.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation    *apperr.ValidationError
		notFound      *apperr.NotFoundError
		conflict      *apperr.ConflictError
		serialization *apperr.SerializationError
	)

	switch {
	case apperr.IsInternal(err):
		logger.Error("Internal invariant violated",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.Error(err)
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	case errors.As(err, &validation):
		utils.SendErrorResponse(c, http.StatusBadRequest, "Validation failed", validation.Issues)
	case errors.As(err, &notFound):
		utils.SendErrorResponse(c, http.StatusNotFound, notFound.Error(), notFoundData{Entity: notFound.Entity, ID: notFound.ID})
	case errors.As(err, &conflict):
		utils.SendErrorResponse(c, http.StatusConflict, conflict.Error(), nil)
	case errors.As(err, &serialization):
		c.Header("Retry-After", retryAfterSeconds)
		utils.SendErrorResponse(c, http.StatusServiceUnavailable, "Transaction conflict, retry the request", nil)
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.Error(err)
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
