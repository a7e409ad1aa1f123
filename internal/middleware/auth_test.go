package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivebridge/backend/internal/auth"
)

func newTestRouter(jwt *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/", RequireAuth(jwt))
	protected.GET("/me", func(c *gin.Context) {
		claims := ForContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	admin := protected.Group("/", RequireRole(RoleAdmin))
	admin.GET("/admin", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewJWTManager("top-secret", time.Hour)
	router := newTestRouter(jwt)

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code, "missing header")

	res = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code, "garbage token")

	token, _, err := jwt.Sign("user-1", "alice", []string{"viewer"})
	require.NoError(t, err)

	res = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "alice")
}

func TestRequireRole(t *testing.T) {
	jwt := auth.NewJWTManager("top-secret", time.Hour)
	router := newTestRouter(jwt)

	viewer, _, err := jwt.Sign("user-1", "alice", []string{"viewer"})
	require.NoError(t, err)
	admin, _, err := jwt.Sign("user-2", "bob", []string{"viewer", RoleAdmin})
	require.NoError(t, err)

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}
