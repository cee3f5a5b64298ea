package middleware

import (
	"net/http"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the Gin context key for validated JWT claims.
const ContextKeyClaims = "claims"

// tokenSource pulls the raw token out of a request.
type tokenSource func(c *gin.Context) string

// fromHeaderOrQuery reads a Bearer header, falling back to ?token= for
// EventSource clients that cannot set headers.
func fromHeaderOrQuery(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") && token != "" {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// fromQuery reads ?token= only. Browsers cannot set headers on a
// WebSocket handshake.
func fromQuery(c *gin.Context) string {
	return c.Query("token")
}

// RequireStudentJWT admits student tokens only.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, fromHeaderOrQuery, service.TokenTypeStudent, response.ErrStudentAccessOnly)
}

// RequireOperatorJWT admits operator tokens only.
func RequireOperatorJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, fromHeaderOrQuery, service.TokenTypeOperator, response.ErrOperatorAccessOnly)
}

// RequireStudentWSAuth admits student tokens passed on the WebSocket URL.
func RequireStudentWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, fromQuery, service.TokenTypeStudent, response.ErrStudentAccessOnly)
}

func requireToken(authService *service.AuthService, source tokenSource, want service.TokenType, denied response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := source(c)
		if raw == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(raw)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, denied)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims returns the claims stored by the JWT middleware, or nil.
func GetClaims(c *gin.Context) *service.Claims {
	claims, _ := c.Value(ContextKeyClaims).(*service.Claims)
	return claims
}
