package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/metrics"
	"rollcall/internal/stats"
)

type sessionRequest struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	IsActive bool   `json:"is_active"`
}

func (r sessionRequest) parse() (attendance.Session, error) {
	d, err := attendance.ParseDate(r.Date)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("%w: date must be YYYY-MM-DD", attendance.ErrValidation)
	}
	return attendance.Session{Title: r.Title, Date: d}, nil
}

func (h *Handler) ListSessions(c *gin.Context) {
	list, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.parse()
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.svc.CreateSession(c.Request.Context(), in.Title, in.Date, req.IsActive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.parse()
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.svc.UpdateSession(c.Request.Context(), c.Param("id"), in.Title, in.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	audit(c, "session deleted by admin", "session_id", c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ActiveSession answers with a null session rather than an error when nothing is active.
func (h *Handler) ActiveSession(c *gin.Context) {
	s, err := h.svc.ActiveSession(c.Request.Context())
	if errors.Is(err, attendance.ErrNoActiveSession) {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

func (h *Handler) Roster(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.svc.GetSession(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	attendees, err := h.svc.ListAttendees(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	logs, err := h.svc.ListLogs(ctx, s.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":   s,
		"breakdown": stats.SessionBreakdown(attendees, logs, s.ID),
	})
}

func (h *Handler) MarkPresent(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.svc.GetSession(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := h.svc.GetAttendee(ctx, c.Param("attendeeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	l, created, err := h.svc.MarkPresent(ctx, a.ID, s.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusConflict, gin.H{"error": "attendee is already marked present", "log": l})
		return
	}
	metrics.Toggles.WithLabelValues("present").Inc()
	c.JSON(http.StatusCreated, l)
}

func (h *Handler) MarkAbsent(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.svc.GetSession(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := h.svc.GetAttendee(ctx, c.Param("attendeeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	removed, err := h.svc.MarkAbsent(ctx, a.ID, s.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if removed {
		metrics.Toggles.WithLabelValues("absent").Inc()
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
