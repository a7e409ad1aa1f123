package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/auth"
)

// A private key for context access
type contextKey string

const userContextKey = contextKey("user")

// RoleAdmin gates the mutating and administrative routes.
const RoleAdmin = "admin"

// RequireAuth verifies the bearer token and stores its claims in the request
// context for handlers to use.
func RequireAuth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")

		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)
		claims, err := jwt.Verify(tokenString)
		if err != nil {
			log.Printf("Error verifying session token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid auth token"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), userContextKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the verified token carries the role.
// Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ForContext(c.Request.Context())
		if claims == nil || !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}
		c.Next()
	}
}

// ForContext finds the verified claims from the context.
func ForContext(ctx context.Context) *auth.Claims {
	raw, _ := ctx.Value(userContextKey).(*auth.Claims)
	return raw
}
