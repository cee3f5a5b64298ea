package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-gonic/gin"
)

func newTestAuth(t *testing.T) *service.AuthService {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret-test-secret-test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, nil, nil, nil, service.SystemClock)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, w.Body.String())
	}
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func TestOperatorJWTAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	ops := r.Group("/op", RequireOperatorJWT(auth))
	ops.GET("/any", func(c *gin.Context) { c.String(http.StatusOK, "%d", GetClaims(c).UserID) })
	ops.POST("/review", RequireRole(model.OperatorRoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	ops.POST("/open", RequireRole(model.OperatorRoleCompany), func(c *gin.Context) { c.Status(http.StatusOK) })

	admin, err := auth.GenerateOperatorToken(1, model.OperatorRoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	company, err := auth.GenerateOperatorToken(2, model.OperatorRoleCompany)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		auth     string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"missing token", http.MethodGet, "/op/any", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage token", http.MethodGet, "/op/any", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"lowercase scheme", http.MethodGet, "/op/any", "bearer " + company, http.StatusOK, ""},
		{"query fallback", http.MethodGet, "/op/any?token=" + company, "", http.StatusOK, ""},
		{"company cannot review", http.MethodPost, "/op/review", "Bearer " + company, http.StatusForbidden, response.ErrRoleDenied},
		{"admin reviews", http.MethodPost, "/op/review", "Bearer " + admin, http.StatusOK, ""},
		{"admin passes company check", http.MethodPost, "/op/open", "Bearer " + admin, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr != "" {
				if got := errorCode(t, w); got != tt.wantErr {
					t.Errorf("code = %s, want %s", got, tt.wantErr)
				}
			}
		})
	}
}

func TestStudentRoutesRejectOperatorTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	r.GET("/student", RequireStudentJWT(auth), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ws", RequireStudentWSAuth(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := auth.GenerateOperatorToken(1, model.OperatorRoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/student", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden || errorCode(t, w) != response.ErrStudentAccessOnly {
		t.Errorf("student route: %d %s", w.Code, w.Body.String())
	}

	// The WebSocket route ignores the header.
	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || errorCode(t, w) != response.ErrTokenRequired {
		t.Errorf("ws route: %d %s", w.Code, w.Body.String())
	}
}
