package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"cannapos/internal/core/apperror"
	"cannapos/pkg/logger"
)

// RateLimit throttles per authenticated user, or per client IP before
// authentication.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		res, err := l.Get(ctx, limitKey(c))
		if err != nil {
			// Fail open.
			logger.Warn(ctx, "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if res.Reached {
			abort(c, apperror.NewRateLimited())
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context) string {
	if id := c.GetInt64(userIDKey); id > 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
