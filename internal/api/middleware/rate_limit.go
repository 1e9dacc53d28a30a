package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"task-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware fails open: when the limiter is unreachable the request is let
// through and the error logged.
type RateLimitMiddleware struct {
	limiter RateLimiter
	log     *zap.Logger
}

func NewRateLimitMiddleware(limiter RateLimiter, log *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, log: log.Named("rate-limit")}
}

// RateLimit limits authenticated requests per user and path
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Unauthorized",
			})
			return
		}
		rm.check(c, fmt.Sprintf("rate_limit:%d:%s", userID, c.Request.URL.Path), requests, window)
	}
}

// RateLimitIP limits requests per client IP and path, for endpoints that run before authentication
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		rm.check(c, fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.Request.URL.Path), requests, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, requests int, window time.Duration) {
	allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
	if err != nil {
		rm.log.Warn("Rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
		c.Next()
		return
	}
	if !allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
			Code:    http.StatusTooManyRequests,
			Message: fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window),
		})
		return
	}
	c.Next()
}
