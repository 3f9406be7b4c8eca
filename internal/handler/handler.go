// Package handler exposes the attendance, stats, report and auth services over gin.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/cache"
	"rollcall/internal/queue"
	"rollcall/internal/report"
)

// Deps are the collaborators a Handler needs. Cache, Jobs and Queue are optional.
type Deps struct {
	Service         *attendance.Service
	Scanner         *attendance.Scanner
	Auth            *auth.Authenticator
	Cache           *cache.Cache
	Jobs            *report.JobStore
	Queue           queue.Queue
	Report          report.Options
	LeaderboardSize int
	Health          map[string]func(context.Context) bool
}

type Handler struct {
	svc             *attendance.Service
	scanner         *attendance.Scanner
	auth            *auth.Authenticator
	cache           *cache.Cache
	jobs            *report.JobStore
	queue           queue.Queue
	reportOpts      report.Options
	leaderboardSize int
	health          map[string]func(context.Context) bool
	now             func() time.Time
}

func New(d Deps) *Handler {
	return &Handler{
		svc:             d.Service,
		scanner:         d.Scanner,
		auth:            d.Auth,
		cache:           d.Cache,
		jobs:            d.Jobs,
		queue:           d.Queue,
		reportOpts:      d.Report,
		leaderboardSize: d.LeaderboardSize,
		health:          d.Health,
		now:             time.Now,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ticket/:id", h.Ticket)
	r.GET("/ticket/:id/qr.png", h.TicketQR)

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	v1 := r.Group("/v1", h.auth.Middleware())
	{
		v1.POST("/auth/logout", h.Logout)

		v1.GET("/attendees", h.ListAttendees)
		v1.POST("/attendees", h.CreateAttendee)
		v1.GET("/attendees/:id", h.GetAttendee)
		v1.PUT("/attendees/:id", h.UpdateAttendee)
		v1.DELETE("/attendees/:id", h.DeleteAttendee)

		v1.GET("/sessions", h.ListSessions)
		v1.POST("/sessions", h.CreateSession)
		v1.GET("/sessions/active", h.ActiveSession)
		v1.GET("/sessions/:id", h.GetSession)
		v1.PUT("/sessions/:id", h.UpdateSession)
		v1.DELETE("/sessions/:id", h.DeleteSession)
		v1.POST("/sessions/:id/active", h.SetActive)
		v1.GET("/sessions/:id/roster", h.Roster)
		v1.PUT("/sessions/:id/attendees/:attendeeId", h.MarkPresent)
		v1.DELETE("/sessions/:id/attendees/:attendeeId", h.MarkAbsent)

		v1.POST("/scan", h.Scan)

		v1.GET("/stats/dashboard", h.Dashboard)
		v1.GET("/stats/leaderboard", h.Leaderboard)
		v1.GET("/stats/trend", h.Trend)
		v1.GET("/stats/categories", h.Categories)

		v1.POST("/reports", h.DownloadReport)
		v1.POST("/reports/jobs", h.CreateReportJob)
		v1.GET("/reports/jobs/:id", h.GetReportJob)
		v1.GET("/reports/jobs/:id/file", h.GetReportFile)
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// writeError maps service errors onto status codes; anything unrecognised is a 500
// whose detail stays in the request log.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, attendance.ErrUnknownAttendee):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrNoActiveSession), errors.Is(err, attendance.ErrCooldown):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// audit records a destructive change together with the admin who made it.
func audit(c *gin.Context, msg string, args ...any) {
	args = append(args, "admin_id", auth.AdminID(c))
	slog.InfoContext(c.Request.Context(), msg, args...)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
