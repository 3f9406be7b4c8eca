package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/report"
)

type reportRequest struct {
	report.Config
	Format string `json:"format"`
}

func (h *Handler) bindReport(c *gin.Context) (report.Config, report.Format, bool) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return report.Config{}, "", false
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		writeError(c, err)
		return report.Config{}, "", false
	}
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		writeError(c, err)
		return report.Config{}, "", false
	}
	return cfg, format, true
}

func (h *Handler) DownloadReport(c *gin.Context) {
	cfg, format, ok := h.bindReport(c)
	if !ok {
		return
	}
	started := time.Now()
	opts := h.reportOpts
	opts.Now = h.now()
	out, err := report.Generate(c.Request.Context(), h.svc, cfg, format, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.ObserveReport(string(format), "sync", started)
	c.Header("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (h *Handler) CreateReportJob(c *gin.Context) {
	if h.jobs == nil || h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report jobs are not configured"})
		return
	}
	cfg, format, ok := h.bindReport(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	job := report.Job{ID: uuid.NewString(), Config: cfg, Format: format, RequestedAt: h.now().UTC()}

	status := report.JobStatus{ID: job.ID, State: report.JobQueued, Format: format, UpdatedAt: job.RequestedAt}
	if err := h.jobs.Set(ctx, status); err != nil {
		writeError(c, err)
		return
	}
	msg, err := queue.NewMessage(report.JobMessageType, job)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.queue.Publish(ctx, msg); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

func (h *Handler) GetReportJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report jobs are not configured"})
		return
	}
	st, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetReportFile serves a finished job's file when it was kept in Redis instead of uploaded.
func (h *Handler) GetReportFile(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report jobs are not configured"})
		return
	}
	ctx := c.Request.Context()
	st, err := h.jobs.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if st.State != report.JobDone {
		c.JSON(http.StatusConflict, gin.H{"error": "report is " + string(st.State)})
		return
	}
	data, err := h.jobs.File(ctx, st.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+st.FileName+`"`)
	c.Data(http.StatusOK, st.Format.ContentType(), data)
}
