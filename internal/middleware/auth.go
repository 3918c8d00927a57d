// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing. This is similar to Express.js
// middleware, but with explicit control flow.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

const userContextKey contextKey = "user"

// UserStore looks up the account behind a token.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// RequireAuth returns middleware that validates JWT Bearer tokens and stores
// the user in the context. Requests without a valid token get 401.
func RequireAuth(users UserStore, jwtSecret string) gin.HandlerFunc {
	log := logger.WithComponent("auth")

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header. Use 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseJWT(tokenString, jwtSecret)
		if err != nil {
			log.WithError(err).WithField("token", logger.MaskToken(tokenString)).Debug("🔒 Rejected token")
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortUnauthorized(c, "Unauthenticated.")
			return
		}

		// Go Pattern: Gin uses its own context (different from context.Context).
		// c.Set() stores values that handlers can retrieve with c.Get().
		c.Set(string(userContextKey), user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.Response{
		Success: false,
		Message: message,
	})
}

// GetUser retrieves the authenticated user from the request context.
// Call this in your handlers after RequireAuth has run.
func GetUser(c *gin.Context) *models.User {
	val, exists := c.Get(string(userContextKey))
	if !exists {
		return nil
	}
	// Go Pattern: Type assertion with the comma-ok idiom won't panic on a
	// wrong type.
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID returns the authenticated user's id, or 0 when there is none.
func GetUserID(c *gin.Context) int64 {
	if user := GetUser(c); user != nil {
		return user.ID
	}
	return 0
}
