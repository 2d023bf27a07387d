package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"appointment-booking-api/internal/auth"
	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/store"
)

// bcrypt rejects passwords longer than 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionJSON struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *model.Owner `json:"user,omitempty"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// POST /api/auth/register
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		message(c, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(req.Password) < minPasswordLen {
		message(c, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	if len(req.Password) > maxPasswordLen {
		message(c, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.accounts.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			message(c, http.StatusBadRequest, "User already exists")
			return
		}
		h.writeError(c, err)
		return
	}

	sess, err := h.issue(c, u.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sess.User = &model.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	c.JSON(http.StatusCreated, sess)
}

// POST /api/auth/login
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		message(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		message(c, http.StatusBadRequest, "All fields are required")
		return
	}

	u, err := h.accounts.UserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.writeError(c, err)
		return
	}
	hash := ""
	if u != nil {
		hash = u.PasswordHash
	}
	// an unknown email still runs a bcrypt comparison
	if !auth.CheckPassword(hash, req.Password) {
		message(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	sess, err := h.issue(c, u.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sess.User = &model.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	c.JSON(http.StatusOK, sess)
}

// POST /api/auth/refresh exchanges a refresh token for a new pair. The old
// token is revoked; presenting a revoked token again revokes the whole family.
func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		message(c, http.StatusBadRequest, "Refresh token required")
		return
	}
	ctx := c.Request.Context()

	old, err := h.accounts.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(req.RefreshToken))
	if errors.Is(err, store.ErrNotFound) {
		message(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	if old.Revoked {
		h.log.WarnContext(ctx, "refresh token reuse", "caller_id", old.UserID)
		if err := h.accounts.RevokeAllRefreshTokens(ctx, old.UserID); err != nil {
			h.log.ErrorContext(ctx, "revoke refresh tokens", "caller_id", old.UserID, "err", err)
		}
		message(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if !old.Usable(h.now()) {
		message(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeError(c, err)
		return
	}
	err = h.accounts.RotateRefreshToken(ctx, old.ID, uuid.New().String(), old.UserID, hash, h.now().Add(h.refreshTTL))
	if errors.Is(err, store.ErrStale) {
		message(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	tok, err := h.guard.MakeToken(old.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionJSON{Token: tok, RefreshToken: raw})
}

// POST /api/auth/logout
func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.accounts.RevokeAllRefreshTokens(ctx, middleware.CallerID(ctx)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) issue(c *gin.Context, userID string) (*sessionJSON, error) {
	tok, err := h.guard.MakeToken(userID)
	if err != nil {
		return nil, err
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if _, err := h.accounts.CreateRefreshToken(c.Request.Context(), userID, hash, h.now().Add(h.refreshTTL)); err != nil {
		return nil, err
	}
	return &sessionJSON{Token: tok, RefreshToken: raw}, nil
}
