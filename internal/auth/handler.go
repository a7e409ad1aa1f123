package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/store"
)

type LoginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handler serves local credential login.
type Handler struct {
	users store.UserStore
	jwt   *JWTManager
}

func NewHandler(users store.UserStore, jwt *JWTManager) *Handler {
	return &Handler{users: users, jwt: jwt}
}

// Login validates the credentials against the users collection and returns a
// session token.
func (h *Handler) Login(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), payload.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}
	if user == nil || subtle.ConstantTimeCompare([]byte(user.Password), []byte(payload.Password)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, expiresAt, err := h.jwt.Sign(user.ID.Hex(), user.Username, user.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"expiresAt":   expiresAt.Unix(),
	})
}
