package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
	"github.com/ikkim/fleetverify-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerSecret = "router-test-secret"

// Controllers are nil: every request here is answered by middleware before a handler runs.
func setupRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	return NewRouter(nil, nil, nil, nil,
		middleware.NewAuthMiddleware(routerSecret),
		middleware.NewThrottle(1000, 1000),
		cfg,
	).Setup()
}

func TestRouter_Health(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/api/v1/admin/verifications/queue", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AdminRoutesRequireAuth(t *testing.T) {
	r := setupRouter()

	reviewer, err := util.GenerateToken(2, "Amaka Eze", util.RoleReviewer, routerSecret, "test", time.Hour)
	require.NoError(t, err)
	driverRole, err := util.GenerateToken(3, "Chidi Okafor", "driver", routerSecret, "test", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "queue without token", method: "GET", path: "/api/v1/admin/verifications/queue", wantStatus: http.StatusUnauthorized},
		{name: "verify without token", method: "POST", path: "/api/v1/admin/drivers/1/verify", wantStatus: http.StatusUnauthorized},
		{name: "review feed not mounted", method: "GET", path: "/api/v1/admin/ws/review-feed", wantStatus: http.StatusNotFound},
		{name: "non admin role", method: "GET", path: "/api/v1/admin/drivers/1/kyc", token: driverRole, wantStatus: http.StatusForbidden},
		{name: "bulk approve needs admin", method: "POST", path: "/api/v1/admin/verifications/bulk-approve", token: reviewer, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
