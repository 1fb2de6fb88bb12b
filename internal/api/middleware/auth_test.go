package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Kshitiz-Mhto/streampipes/pkg/config"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func createTestToken(secret []byte, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString(secret)
	return tokenString
}

func scopedRouter(secret []byte, users *config.UsersConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	group := router.Group("/api/v2/users/:username")
	group.Use(AuthMiddleware(secret), UserScopeMiddleware(users))
	group.GET("/pipelines/own", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	valid := createTestToken(secret, jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name     string
		header   string
		expected int
		code     models.ErrorCode
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"invalid format", "Token " + valid, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"wrong secret", "Bearer " + createTestToken([]byte("other"), jwt.MapClaims{"sub": "alice"}), http.StatusUnauthorized, models.ErrCodeInvalidToken},
		{"expired", "Bearer " + createTestToken(secret, jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, models.ErrCodeInvalidToken},
		{"no subject", "Bearer " + createTestToken(secret, jwt.MapClaims{"role": "admin"}), http.StatusUnauthorized, models.ErrCodeInvalidToken},
	}

	router := scopedRouter(secret, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v2/users/alice/pipelines/own", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Fatalf("expected status %d, got %d", tt.expected, w.Code)
			}
			if tt.code == "" {
				return
			}
			var apiErr models.APIError
			if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
			if apiErr.RequestID == "" {
				t.Error("expected request id in error")
			}
		})
	}
}

func TestUserScopeMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	users := &config.UsersConfig{AdminUsers: []string{"root"}}
	router := scopedRouter(secret, users)

	tests := []struct {
		name     string
		claims   jwt.MapClaims
		path     string
		expected int
	}{
		{"own path", jwt.MapClaims{"sub": "alice"}, "/api/v2/users/alice/pipelines/own", http.StatusOK},
		{"other user", jwt.MapClaims{"sub": "bob"}, "/api/v2/users/alice/pipelines/own", http.StatusForbidden},
		{"admin role claim", jwt.MapClaims{"sub": "bob", "role": "admin"}, "/api/v2/users/alice/pipelines/own", http.StatusOK},
		{"configured admin", jwt.MapClaims{"sub": "root"}, "/api/v2/users/alice/pipelines/own", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			req.Header.Set("Authorization", "Bearer "+createTestToken(secret, tt.claims))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Body.String() != "req-1" || w.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("expected request id to be propagated, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
	if w.Body.String() == "" {
		t.Error("expected generated request id")
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware())
	router.OPTIONS("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/test", http.NoBody))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}
