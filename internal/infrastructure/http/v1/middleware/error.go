package middleware

import (
	"github.com/gin-gonic/gin"

	"cannapos/internal/core/apperror"
	"cannapos/pkg/logger"
)

// ErrorHandler renders the last handler error as JSON. Causes are logged,
// never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		render(c, apperror.Classify(c.Errors.Last().Err))
	}
}

func render(c *gin.Context, appErr *apperror.AppError) {
	if appErr.Err != nil {
		logger.Error(c.Request.Context(), "request error",
			"code", appErr.Code,
			"cause", appErr.Err,
		)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 && appErr.Code != apperror.CodeInternal {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}
