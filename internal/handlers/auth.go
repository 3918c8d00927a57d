// auth.go handles user authentication HTTP endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// Register creates a new user account.
// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	emailTaken := apperr.Field("email", "The email has already been taken.")

	existing, err := h.Users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		h.fail(c, err)
		return
	}
	if existing != nil {
		h.fail(c, emailTaken)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(c, err)
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.Users.CreateUser(c.Request.Context(), user); err != nil {
		// Lost a race with another registration for the same address
		if errors.Is(err, apperr.ErrConflict) {
			err = emailTaken
		}
		h.fail(c, err)
		return
	}

	h.log.WithField("user_id", user.ID).Info("👤 User registered")
	h.issueToken(c, http.StatusCreated, "Registration successful", user)
}

// Login authenticates a user and returns a JWT token.
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invalid := apperr.Unauthorized("Invalid email or password")

	user, err := h.Users.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperr.ErrNotFound) {
		h.fail(c, invalid)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.fail(c, invalid)
		return
	}

	h.issueToken(c, http.StatusOK, "Login successful", user)
}

// Logout ends the session. Tokens are stateless, so the client discards it.
// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

// RefreshToken issues a new JWT token for an authenticated user.
// POST /api/auth/refresh
func (h *Handler) RefreshToken(c *gin.Context) {
	h.issueToken(c, http.StatusOK, "Token refreshed", middleware.GetUser(c))
}

// CurrentUser returns the authenticated user.
// GET /api/auth/user
func (h *Handler) CurrentUser(c *gin.Context) {
	respond(c, http.StatusOK, "", middleware.GetUser(c))
}

func (h *Handler) issueToken(c *gin.Context, status int, message string, user *models.User) {
	token, expiresAt, err := middleware.GenerateJWT(user, h.JWTSecret, h.JWTTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, status, message, models.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	})
}
