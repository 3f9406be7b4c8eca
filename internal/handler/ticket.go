package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/ticket"
)

const maxQRSize = 1024

// Ticket is the public view of an attendee; contact details are left out.
func (h *Handler) Ticket(c *gin.Context) {
	a, err := h.svc.GetAttendee(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           a.ID,
		"full_name":    a.FullName,
		"category":     a.Category,
		"organization": a.Organization,
		"qr_url":       "/ticket/" + a.ID + "/qr.png",
	})
}

func (h *Handler) TicketQR(c *gin.Context) {
	size := ticket.DefaultSize
	if v := c.Query("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 64 || parsed > maxQRSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = parsed
	}
	a, err := h.svc.GetAttendee(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	png, err := ticket.PNG(a.ID, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}
