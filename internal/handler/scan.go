package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/metrics"
)

func (h *Handler) Scan(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.scanner.Scan(c.Request.Context(), req.Code)
	if err != nil {
		metrics.Scans.WithLabelValues(scanFailure(err)).Inc()
		writeError(c, err)
		return
	}
	metrics.Scans.WithLabelValues(string(res.Outcome)).Inc()
	c.JSON(http.StatusOK, res)
}

func scanFailure(err error) string {
	switch {
	case errors.Is(err, attendance.ErrCooldown):
		return "cooldown"
	case errors.Is(err, attendance.ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, attendance.ErrUnknownAttendee):
		return "unknown_code"
	default:
		return "error"
	}
}
