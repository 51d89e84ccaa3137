package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/pkg/logger"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth requires a valid bearer token and stores the caller in the request
// context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abort(c, apperror.NewUnauthorized())
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			logger.Debug(c.Request.Context(), "token rejected", "error", err)
			abort(c, apperror.NewUnauthorized())
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Set(userIDKey, user.UserID)
		c.Next()
	}
}

// RequireRole admits callers holding any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			abort(c, apperror.NewUnauthorized())
			return
		}
		for _, role := range roles {
			if appctx.HasRole(ctx, role) {
				c.Next()
				return
			}
		}
		abort(c, apperror.NewForbidden())
	}
}

const userIDKey = "user_id"

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
