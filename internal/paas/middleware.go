package paas

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftvault/internal/auth"
)

// WriteAuditMiddleware records every non-GET /api call in the platform log.
func WriteAuditMiddleware(p *Client, agent string, logger *zap.Logger) gin.HandlerFunc {
	if p == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if strings.TrimSpace(agent) == "" {
		agent = "nftvault-service"
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		user, _ := auth.UserFromContext(c.Request.Context())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := p.CreateLog(ctx, CreateLogRequest{
			Agent:  agent,
			Action: "nftvault_http_write",
			Level:  levelFromStatus(status),
			Details: map[string]any{
				"method":   method,
				"route":    c.FullPath(),
				"path":     path,
				"status":   status,
				"duration": time.Since(start).String(),
				"user":     user,
			},
		})
		if err != nil && logger != nil {
			logger.Debug("paas audit log failed", zap.Error(err))
		}
	}
}

func levelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
