package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/strategy-config/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimitConfig holds the per-caller write budget
type RateLimitConfig struct {
	WritesPerMinute int
	Prefix          string
}

// RateLimit caps the number of mutations a caller may submit per minute.
// Callers are identified by user id when authenticated, by client IP otherwise.
// When Redis is unreachable requests are let through.
func RateLimit(client *redis.Client, config RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if userID, ok := c.Get(UserIDKey); ok {
			subject = fmt.Sprintf("user:%v", userID)
		}

		now := time.Now()
		count, err := incrWindow(c.Request.Context(), client, windowKey(config.Prefix, subject, now))
		if err != nil {
			logger.Error("Rate limit check failed", zap.Error(err), zap.String("subject", subject))
			c.Next()
			return
		}

		remaining := int64(config.WritesPerMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		reset := (now.Unix()/60 + 1) * 60

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.WritesPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > int64(config.WritesPerMinute) {
			c.Header("Retry-After", strconv.FormatInt(reset-now.Unix(), 10))
			utils.SendErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", nil)
			return
		}

		c.Next()
	}
}

// windowKey names the counter of subject for the current minute
func windowKey(prefix, subject string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", prefix, subject, now.Unix()/60)
}

func incrWindow(ctx context.Context, client *redis.Client, key string) (int64, error) {
	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
