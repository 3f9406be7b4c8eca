package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/cache"
	"rollcall/internal/stats"
)

const defaultTrendSessions = 7

func (h *Handler) Dashboard(c *gin.Context) {
	sum, err := cache.Remember(c.Request.Context(), h.cache, "dashboard", h.loadDashboard)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) loadDashboard(ctx context.Context) (stats.Summary, error) {
	attendees, err := h.svc.ListAttendees(ctx)
	if err != nil {
		return stats.Summary{}, err
	}
	active, err := h.svc.ActiveSession(ctx)
	if errors.Is(err, attendance.ErrNoActiveSession) {
		return stats.Dashboard(attendees, nil, nil), nil
	}
	if err != nil {
		return stats.Summary{}, err
	}
	logs, err := h.svc.ListLogs(ctx, active.ID)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Dashboard(attendees, &active, logs), nil
}

func (h *Handler) Leaderboard(c *gin.Context) {
	board, err := cache.Remember(c.Request.Context(), h.cache, "leaderboard", func(ctx context.Context) (stats.Board, error) {
		attendees, err := h.svc.ListAttendees(ctx)
		if err != nil {
			return stats.Board{}, err
		}
		logs, err := h.svc.ListLogs(ctx)
		if err != nil {
			return stats.Board{}, err
		}
		return stats.Leaderboard(attendees, logs, h.leaderboardSize), nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) Trend(c *gin.Context) {
	n := defaultTrendSessions
	if v := c.Query("sessions"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessions must be a positive integer"})
			return
		}
		n = parsed
	}
	points, err := cache.Remember(c.Request.Context(), h.cache, "trend:"+strconv.Itoa(n), func(ctx context.Context) ([]stats.TrendPoint, error) {
		sessions, err := h.svc.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		logs, err := h.svc.ListLogs(ctx)
		if err != nil {
			return nil, err
		}
		return orEmpty(stats.Trend(sessions, logs, n)), nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *Handler) Categories(c *gin.Context) {
	shares, err := cache.Remember(c.Request.Context(), h.cache, "categories", func(ctx context.Context) ([]stats.Share, error) {
		attendees, err := h.svc.ListAttendees(ctx)
		if err != nil {
			return nil, err
		}
		return stats.CategoryDistribution(attendees), nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}
