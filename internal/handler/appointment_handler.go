package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/reservation"
)

func views(rs []reservation.Result) []model.View {
	out := make([]model.View, 0, len(rs))
	for _, r := range rs {
		out = append(out, model.NewView(r.Appointment, r.Owner))
	}
	return out
}

// GET /api/appointments/available
func (h *Handler) listAvailable(c *gin.Context) {
	rows, err := h.engine.ListAvailable(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]model.View, 0, len(rows))
	for _, a := range rows {
		out = append(out, model.NewView(a, nil))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/appointments lists bookable slots; with ?userOnly=true it lists the
// caller's reservations instead.
func (h *Handler) listAppointments(c *gin.Context) {
	userOnly, _ := strconv.ParseBool(c.Query("userOnly"))
	if !userOnly {
		h.listAvailable(c)
		return
	}
	ctx := c.Request.Context()
	rs, err := h.engine.ListMine(ctx, middleware.CallerID(ctx))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rs))
}

// PUT /api/appointments/:id/reserve
func (h *Handler) reserve(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.engine.Reserve(ctx, c.Param("id"), middleware.CallerID(ctx))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewView(res.Appointment, res.Owner))
}

// PUT /api/appointments/:id/cancel
func (h *Handler) cancel(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.engine.Cancel(ctx, c.Param("id"), middleware.CallerID(ctx))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewView(res.Appointment, res.Owner))
}
