package internal

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const cookieName = "palpite_token"

type claims struct {
	UserID   int      `json:"uid"`
	Username string   `json:"name"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Auth accepts a bearer token and falls back to the session cookie.
func Auth(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(cookieName)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			return
		}

		cl, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}

		c.Set("uid", cl.UserID)
		c.Set("username", cl.Username)
		c.Set("roles", cl.Roles)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get("roles")
		list, _ := roles.([]string)
		if !hasRole(list, RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// RequireVisible rejects the request while guesses are not locked.
func RequireVisible(gate *VisibilityGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.Status() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "guesses are not visible yet"})
			return
		}
		c.Next()
	}
}

func uid(c *gin.Context) int {
	v, _ := c.Get("uid")
	return v.(int)
}

func username(c *gin.Context) string {
	return c.GetString("username")
}

// requestLogger replaces gin's default access log with slog records.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
