package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nftvault/internal/config"
)

// Middleware attaches the caller identity to the request context. With auth
// disabled every request acts as cfg.DefaultUser. A missing token is
// anonymous; an invalid token is rejected.
func Middleware(cfg config.AuthConfig) gin.HandlerFunc {
	verifier := JWT{Secret: []byte(cfg.JWTSecret), TokenTTL: cfg.TokenTTL}
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Request = c.Request.WithContext(WithUser(c.Request.Context(), cfg.DefaultUser))
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.Next()
			return
		}
		claims, err := verifier.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireUser rejects anonymous callers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing bearer token"})
			return
		}
		c.Next()
	}
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
