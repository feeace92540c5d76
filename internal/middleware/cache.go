package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheConfig holds configuration for the cache middleware
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// RedisCache serves GET responses from Redis and stores successful ones
func RedisCache(client *redis.Client, config CacheConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := generateCacheKey(c, config.Prefix)
		ctx := c.Request.Context()

		cached, err := client.Get(ctx, cacheKey).Bytes()
		if err == nil {
			logger.Debug("Cache hit",
				zap.String("path", c.Request.URL.Path),
				zap.String("cache_key", cacheKey))

			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}
		if err != redis.Nil {
			logger.Warn("Cache lookup failed", zap.Error(err), zap.String("cache_key", cacheKey))
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		// Only cache successful responses
		if c.Writer.Status() != http.StatusOK {
			return
		}
		if err := client.Set(ctx, cacheKey, writer.body.Bytes(), config.TTL).Err(); err != nil {
			logger.Error("Failed to set cache",
				zap.Error(err),
				zap.String("cache_key", cacheKey))
		}
	}
}

// InvalidateCache drops every cached response once a mutation has succeeded
func InvalidateCache(client *redis.Client, prefix string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusMultipleChoices {
			return
		}
		if err := FlushCache(c.Request.Context(), client, prefix); err != nil {
			logger.Error("Failed to flush cache", zap.Error(err), zap.String("prefix", prefix))
		}
	}
}

// FlushCache removes every key under prefix
func FlushCache(ctx context.Context, client *redis.Client, prefix string) error {
	keys, err := client.Keys(ctx, prefix+":*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}

// responseWriter captures the response body for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response for caching
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// generateCacheKey creates a unique cache key for a request
func generateCacheKey(c *gin.Context, prefix string) string {
	hash := sha256.New()
	io.WriteString(hash, c.Request.URL.Path)
	if query := c.Request.URL.RawQuery; query != "" {
		io.WriteString(hash, "?"+query)
	}
	return prefix + ":" + hex.EncodeToString(hash.Sum(nil))
}
