package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
	"rollcall/internal/cloudinary"
	"rollcall/internal/queue"
	"rollcall/internal/report"
	"rollcall/internal/store"
)

type fakeUploader struct {
	publicID string
	size     int
	err      error
}

func (f *fakeUploader) UploadRaw(_ context.Context, data []byte, _, publicID string) (*cloudinary.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.publicID = publicID
	f.size = len(data)
	return &cloudinary.UploadResult{SecureURL: "https://cdn.example/" + publicID}, nil
}

func setup(t *testing.T) (*attendance.Service, *report.JobStore) {
	t.Helper()
	ctx := context.Background()
	db, err := store.NewDB(store.DriverSQLite, filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return attendance.NewService(attendance.NewRepository(db.Client)), report.NewJobStore(rdb, time.Hour)
}

func jobMessage(t *testing.T, job report.Job) queue.Message {
	t.Helper()
	msg, err := queue.NewMessage(report.JobMessageType, job)
	require.NoError(t, err)
	return msg
}

func TestHandleUploads(t *testing.T) {
	svc, jobs := setup(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "Day 1", time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)

	up := &fakeUploader{}
	w := &Reports{
		Source:   svc,
		Jobs:     jobs,
		Uploader: up,
		Now:      func() time.Time { return time.Date(2025, 5, 7, 10, 0, 0, 0, time.UTC) },
	}
	job := report.Job{ID: "0123456789ab", Config: report.Config{SessionIDs: []string{sess.ID}}, Format: report.FormatPDF}
	require.NoError(t, w.Handle(ctx, jobMessage(t, job)))

	st, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, report.JobDone, st.State)
	assert.Equal(t, "Attendance-Report-2025-05-07.pdf", st.FileName)
	assert.Equal(t, "Attendance-Report-2025-05-07-01234567.pdf", up.publicID)
	assert.True(t, strings.HasPrefix(st.URL, "https://cdn.example/"))
	assert.NotZero(t, up.size)
}

func TestHandleKeepsFileWithoutUploader(t *testing.T) {
	svc, jobs := setup(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "Day 1", time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	w := &Reports{Source: svc, Jobs: jobs}
	job := report.Job{ID: "j2", Config: report.Config{SessionIDs: []string{sess.ID}}, Format: report.FormatXLSX}
	require.NoError(t, w.Handle(ctx, jobMessage(t, job)))

	st, err := jobs.Get(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, report.JobDone, st.State)
	assert.Equal(t, "/v1/reports/jobs/j2/file", st.URL)
	data, err := jobs.File(ctx, "j2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "PK"), "xlsx is a zip archive")
}

func TestHandleRecordsFailure(t *testing.T) {
	svc, jobs := setup(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "Day 1", time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	w := &Reports{Source: svc, Jobs: jobs, Uploader: &fakeUploader{err: errors.New("cloudinary down")}}
	job := report.Job{ID: "j3", Config: report.Config{SessionIDs: []string{sess.ID}}, Format: report.FormatPDF}
	require.Error(t, w.Handle(ctx, jobMessage(t, job)))

	st, err := jobs.Get(ctx, "j3")
	require.NoError(t, err)
	assert.Equal(t, report.JobFailed, st.State)
	assert.Contains(t, st.Error, "cloudinary down")

	missing := report.Job{ID: "j4", Config: report.Config{SessionIDs: []string{"gone"}}, Format: report.FormatPDF}
	require.Error(t, w.Handle(ctx, jobMessage(t, missing)))
	st, err = jobs.Get(ctx, "j4")
	require.NoError(t, err)
	assert.Equal(t, report.JobFailed, st.State)
}

func TestRunStopsWithContext(t *testing.T) {
	svc, jobs := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewInMemory(4)
	w := &Reports{Source: svc, Jobs: jobs}

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other"}))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, q) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}
