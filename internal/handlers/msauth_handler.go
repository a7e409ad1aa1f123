package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"drivebridge/backend/internal/msauth"
)

// MSAuthHandler exposes the delegated-flow account linking: an admin fetches
// the authorization URL, the user consents, and the redirect lands on the
// callback which registers the account.
type MSAuthHandler struct {
	provider *msauth.Provider
}

func NewMSAuthHandler(provider *msauth.Provider) *MSAuthHandler {
	return &MSAuthHandler{provider: provider}
}

// LoginURL returns the URL a user visits to link their Microsoft account.
func (h *MSAuthHandler) LoginURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": h.provider.AuthCodeURL(uuid.NewString())})
}

// Callback redeems the authorization code delivered by the identity
// platform redirect.
func (h *MSAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	account, err := h.provider.Redeem(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Account linking failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}
