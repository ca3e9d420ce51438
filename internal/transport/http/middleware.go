package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"learnhub-service/internal/app"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

const ctxUserID = "user_id"

// RequestLogger logs one line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}

// RequireAuth accepts "Authorization: Bearer <token>" and stores the caller in the context.
func RequireAuth(auth *app.AuthService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, log, domain.ErrUnauthorized)
			return
		}
		claims, err := auth.Authenticate(token)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.Set(ctxUserID, claims.UserID())
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
