package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store/storetest"
)

func newLoginRouter(t *testing.T) (*gin.Engine, *JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := storetest.NewUsers()
	users.Seed(models.User{Username: "alice", Password: "s3cret", Roles: []string{"admin"}})

	jwt := NewJWTManager("top-secret", time.Hour)
	handler := NewHandler(users, jwt)

	r := gin.New()
	r.POST("/auth/login", handler.Login)
	return r, jwt
}

func postLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(res, req)
	return res
}

func TestLogin(t *testing.T) {
	router, jwt := newLoginRouter(t)

	res := postLogin(router, `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		AccessToken string `json:"accessToken"`
		ExpiresAt   int64  `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	assert.Greater(t, body.ExpiresAt, time.Now().Unix())

	claims, err := jwt.Verify(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.HasRole("admin"))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := newLoginRouter(t)

	res := postLogin(router, `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = postLogin(router, `{"username":"nobody","password":"s3cret"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = postLogin(router, `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
