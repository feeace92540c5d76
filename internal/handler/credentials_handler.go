package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/strategy-config/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CredentialsReader opens the broker credentials of a scheme
type CredentialsReader interface {
	Credentials(ctx context.Context, schemeID int64) (string, string, error)
}

// CredentialsHandler serves broker credentials to the strategy runner
type CredentialsHandler struct {
	credentials CredentialsReader
	logger      *zap.Logger
}

// NewCredentialsHandler creates a new credentials handler
func NewCredentialsHandler(credentials CredentialsReader, logger *zap.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		credentials: credentials,
		logger:      logger,
	}
}

type credentialsBody struct {
	BrokerAPIKey    string `json:"brokerApiKey"`
	BrokerAPISecret string `json:"brokerApiSecret"`
}

// GetCredentials handles reading the opened credentials of a scheme
// GET /api/v1/internal/sea-dog-discount-schemes/:id/credentials
func (h *CredentialsHandler) GetCredentials(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	key, secret, err := h.credentials.Credentials(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Broker credentials read", zap.Int64("scheme_id", id))
	utils.SendResponse(c, http.StatusOK, "OK", credentialsBody{BrokerAPIKey: key, BrokerAPISecret: secret})
}
