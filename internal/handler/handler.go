// Package handler exposes the reservation engine and account endpoints over
// HTTP with gin.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"appointment-booking-api/internal/auth"
	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/reservation"
	"appointment-booking-api/internal/store"
)

// Accounts is the user and refresh token side of the store.
type Accounts interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Deps struct {
	Engine     *reservation.Engine
	Accounts   Accounts
	Guard      *auth.Guard
	Limiter    *middleware.RateLimiter
	RefreshTTL time.Duration
	Log        *slog.Logger
}

type Handler struct {
	engine     *reservation.Engine
	accounts   Accounts
	guard      *auth.Guard
	limiter    *middleware.RateLimiter
	refreshTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		engine:     d.Engine,
		accounts:   d.Accounts,
		guard:      d.Guard,
		limiter:    d.Limiter,
		refreshTTL: d.RefreshTTL,
		log:        d.Log,
		now:        time.Now,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.refreshTTL <= 0 {
		h.refreshTTL = 7 * 24 * time.Hour
	}
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)

	requireAuth := middleware.RequireAuth(h.guard)
	api := r.Group("/api")

	appointments := api.Group("/appointments")
	{
		appointments.GET("/available", h.listAvailable)
		appointments.GET("", requireAuth, h.listAppointments)
		appointments.PUT("/:id/reserve", requireAuth, h.reserve)
		appointments.PUT("/:id/cancel", requireAuth, h.cancel)
	}

	accounts := api.Group("/auth")
	{
		limited := accounts.Group("")
		if h.limiter != nil {
			limited.Use(middleware.Limit(h.limiter))
		}
		limited.POST("/register", h.register)
		limited.POST("/login", h.login)
		accounts.POST("/refresh", h.refresh)
		accounts.POST("/logout", requireAuth, h.logout)
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.accounts.Ping(ctx); err != nil {
		h.log.ErrorContext(ctx, "health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func message(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"message": msg})
}

// writeError maps engine errors to the status codes clients rely on.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reservation.ErrNotFound):
		message(c, http.StatusNotFound, "Appointment not found")
	case errors.Is(err, reservation.ErrConflict):
		message(c, http.StatusBadRequest, "Appointment is already reserved")
	case errors.Is(err, reservation.ErrInvalidState):
		message(c, http.StatusBadRequest, "Appointment is not reserved")
	case errors.Is(err, reservation.ErrForbidden):
		message(c, http.StatusForbidden, "Not authorized to cancel this appointment")
	case errors.Is(err, reservation.ErrUnauthenticated):
		message(c, http.StatusUnauthorized, "Not authorized, token failed")
	default:
		h.log.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "err", err)
		message(c, http.StatusInternalServerError, "Internal server error")
	}
}
