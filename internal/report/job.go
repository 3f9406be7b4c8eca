package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/attendance"
)

// JobMessageType tags report jobs on the work queue.
const JobMessageType = "report"

// Job is an asynchronous export request.
type Job struct {
	ID          string    `json:"id"`
	Config      Config    `json:"config"`
	Format      Format    `json:"format"`
	RequestedAt time.Time `json:"requested_at"`
}

// JobState tracks a job through the worker.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is what clients poll for.
type JobStatus struct {
	ID        string    `json:"id"`
	State     JobState  `json:"state"`
	Format    Format    `json:"format"`
	FileName  string    `json:"file_name,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStore keeps job statuses in Redis with a TTL.
type JobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJobStore creates a store; ttl defaults to a day.
func NewJobStore(client *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStore{client: client, prefix: "rollcall:report:job:", ttl: ttl}
}

// Set overwrites the status for st.ID.
func (s *JobStore) Set(ctx context.Context, st JobStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+st.ID, raw, s.ttl).Err()
}

// SetFile keeps the rendered bytes for id under the same TTL as its status.
func (s *JobStore) SetFile(ctx context.Context, id string, data []byte) error {
	return s.client.Set(ctx, s.prefix+id+":file", data, s.ttl).Err()
}

// File returns the bytes stored by SetFile or attendance.ErrNotFound.
func (s *JobStore) File(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+id+":file").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("report file %s: %w", id, attendance.ErrNotFound)
	}
	return data, err
}

// Get returns the status for id or attendance.ErrNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (JobStatus, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return JobStatus{}, fmt.Errorf("report job %s: %w", id, attendance.ErrNotFound)
	}
	if err != nil {
		return JobStatus{}, err
	}
	var st JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return JobStatus{}, fmt.Errorf("decode job status: %w", err)
	}
	return st, nil
}
