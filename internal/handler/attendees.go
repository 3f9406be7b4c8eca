package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
)

func (h *Handler) ListAttendees(c *gin.Context) {
	var categories []attendance.Category
	for _, raw := range c.QueryArray("category") {
		cat, ok := attendance.ParseCategory(raw)
		if !ok {
			writeError(c, fmt.Errorf("%w: unknown category %q", attendance.ErrValidation, raw))
			return
		}
		categories = append(categories, cat)
	}
	list, err := h.svc.ListAttendees(c.Request.Context(), categories...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) CreateAttendee(c *gin.Context) {
	var in attendance.AttendeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.svc.CreateAttendee(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAttendee(c *gin.Context) {
	a, err := h.svc.GetAttendee(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAttendee(c *gin.Context) {
	var in attendance.AttendeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.svc.UpdateAttendee(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAttendee(c *gin.Context) {
	if err := h.svc.DeleteAttendee(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	audit(c, "attendee deleted by admin", "attendee_id", c.Param("id"))
	c.Status(http.StatusNoContent)
}
