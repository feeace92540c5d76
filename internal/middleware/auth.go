package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/yourorg/strategy-config/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// UserIDKey is the context key holding the authenticated user id
const UserIDKey = "userID"

// AuthMiddleware verifies HMAC-signed access tokens issued by the user service
func AuthMiddleware(jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Authorization header required", nil)
			return
		}

		// Extract token (remove "Bearer " prefix)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Invalid authorization format", nil)
			return
		}

		userID, err := validateAccessToken(token, jwtSecret)
		if err != nil {
			logger.Debug("Invalid token", zap.Error(err))
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// validateAccessToken parses the token and returns its subject
func validateAccessToken(tokenString, secret string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid claims")
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return 0, errors.New("invalid token type")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, errors.New("invalid subject")
	}
	return int(sub), nil
}

// ServiceAuthMiddleware authenticates service-to-service requests by shared key
func ServiceAuthMiddleware(expectedKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceKey := c.GetHeader("X-Service-Key")
		if serviceKey == "" {
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Service authentication required", nil)
			return
		}

		if subtle.ConstantTimeCompare([]byte(serviceKey), []byte(expectedKey)) != 1 {
			logger.Warn("Invalid service key received", zap.String("client_ip", c.ClientIP()))
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Invalid service key", nil)
			return
		}

		c.Next()
	}
}
