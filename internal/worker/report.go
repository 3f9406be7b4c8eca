// Package worker processes queued background jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rollcall/internal/cloudinary"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/report"
)

// Uploader stores a rendered file and returns where it can be downloaded.
type Uploader interface {
	UploadRaw(ctx context.Context, data []byte, filename, publicID string) (*cloudinary.UploadResult, error)
}

// Reports renders queued report jobs. Without an Uploader the file is kept
// next to the job status and served by the API.
type Reports struct {
	Source   report.Source
	Jobs     *report.JobStore
	Options  report.Options
	Uploader Uploader
	Now      func() time.Time
}

// Run consumes q until ctx is cancelled.
func (w *Reports) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init: %w", err)
	}
	slog.Info("report worker started")
	for msg := range messages {
		if msg.Type != report.JobMessageType {
			slog.Warn("skipping unknown message", "type", msg.Type)
			continue
		}
		if err := w.Handle(ctx, msg); err != nil {
			slog.Error("report job failed", "error", err)
		}
	}
	slog.Info("report worker stopped")
	return nil
}

// Handle processes one report message and records its final status.
func (w *Reports) Handle(ctx context.Context, msg queue.Message) error {
	var job report.Job
	if err := msg.Decode(&job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	log := slog.With("job_id", job.ID, "format", job.Format)
	log.Info("processing report job", "sessions", len(job.Config.SessionIDs), "audience", job.Config.Audience)

	status := report.JobStatus{ID: job.ID, Format: job.Format, State: report.JobRunning}
	if err := w.Jobs.Set(ctx, status); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	url, fileName, err := w.render(ctx, job)
	status.FileName = fileName
	if err != nil {
		status.State = report.JobFailed
		status.Error = err.Error()
	} else {
		status.State = report.JobDone
		status.URL = url
	}
	status.UpdatedAt = time.Time{}
	if serr := w.Jobs.Set(ctx, status); serr != nil {
		return fmt.Errorf("record status: %w", serr)
	}
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	log.Info("report job done", "url", url)
	return nil
}

func (w *Reports) render(ctx context.Context, job report.Job) (string, string, error) {
	started := time.Now()
	opts := w.Options
	if w.Now != nil {
		opts.Now = w.Now()
	}
	out, err := report.Generate(ctx, w.Source, job.Config, job.Format, opts)
	if err != nil {
		return "", "", err
	}
	metrics.ObserveReport(string(job.Format), "async", started)

	if w.Uploader == nil {
		if err := w.Jobs.SetFile(ctx, job.ID, out.Data); err != nil {
			return "", out.FileName, fmt.Errorf("store file: %w", err)
		}
		return "/v1/reports/jobs/" + job.ID + "/file", out.FileName, nil
	}

	publicID := strings.TrimSuffix(out.FileName, "."+string(job.Format)) + "-" + job.ID[:min(8, len(job.ID))] + "." + string(job.Format)
	res, err := w.Uploader.UploadRaw(ctx, out.Data, out.FileName, publicID)
	if err != nil {
		return "", out.FileName, fmt.Errorf("upload: %w", err)
	}
	return res.SecureURL, out.FileName, nil
}
