package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service implements the attendee and session registries and the attendance
// recorder. Multi-step writes (deactivate-all then activate, delete logs then
// parent) are issued sequentially without a transaction.
type Service struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
	onChange func(ctx context.Context)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithChangeHook registers fn to run after any write that affects attendance
// aggregates (logs, attendees, sessions).
func WithChangeHook(fn func(ctx context.Context)) Option {
	return func(s *Service) { s.onChange = fn }
}

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	s := &Service{store: store, validate: v, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func (s *Service) validateAttendee(in AttendeeInput) (AttendeeInput, error) {
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		return in, fromValidator(err)
	}
	return in, nil
}

// CreateAttendee registers a new attendee.
func (s *Service) CreateAttendee(ctx context.Context, in AttendeeInput) (Attendee, error) {
	in, err := s.validateAttendee(in)
	if err != nil {
		return Attendee{}, err
	}
	a := Attendee{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        optional(in.Phone),
		Category:     in.Category,
		StudentID:    optional(in.StudentID),
		Organization: optional(in.Organization),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertAttendee(ctx, a); err != nil {
		return Attendee{}, fmt.Errorf("create attendee: %w", err)
	}
	s.changed(ctx)
	return a, nil
}

// UpdateAttendee replaces the attendee's editable fields.
func (s *Service) UpdateAttendee(ctx context.Context, id string, in AttendeeInput) (Attendee, error) {
	in, err := s.validateAttendee(in)
	if err != nil {
		return Attendee{}, err
	}
	current, err := s.GetAttendee(ctx, id)
	if err != nil {
		return Attendee{}, err
	}
	current.FullName = in.FullName
	current.Email = in.Email
	current.Phone = optional(in.Phone)
	current.Category = in.Category
	current.StudentID = optional(in.StudentID)
	current.Organization = optional(in.Organization)

	ok, err := s.store.UpdateAttendee(ctx, current)
	if err != nil {
		return Attendee{}, fmt.Errorf("update attendee: %w", err)
	}
	if !ok {
		return Attendee{}, ErrNotFound
	}
	s.changed(ctx)
	return current, nil
}

// DeleteAttendee removes the attendee's logs first, then the attendee. A failure
// on the second step leaves the logs deleted.
func (s *Service) DeleteAttendee(ctx context.Context, id string) error {
	n, err := s.store.DeleteLogsByAttendee(ctx, id)
	if err != nil {
		return fmt.Errorf("delete attendee logs: %w", err)
	}
	ok, err := s.store.DeleteAttendee(ctx, id)
	if n > 0 || ok {
		s.changed(ctx)
	}
	if err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "attendee deleted", "attendee_id", id, "logs_removed", n)
	return nil
}

// GetAttendee returns a single attendee.
func (s *Service) GetAttendee(ctx context.Context, id string) (Attendee, error) {
	a, err := s.store.GetAttendee(ctx, id)
	if err != nil {
		return Attendee{}, fmt.Errorf("get attendee: %w", err)
	}
	if a == nil {
		return Attendee{}, ErrNotFound
	}
	return *a, nil
}

// ListAttendees returns attendees matching any of the categories, ordered by name.
func (s *Service) ListAttendees(ctx context.Context, categories ...Category) ([]Attendee, error) {
	res, err := s.store.ListAttendees(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return res, nil
}

// CreateSession inserts a session. With setActive every other session is
// deactivated first.
func (s *Service) CreateSession(ctx context.Context, title string, date time.Time, setActive bool) (Session, error) {
	title = strings.TrimSpace(title)
	if title == "" || date.IsZero() {
		return Session{}, validationError("title and date are required")
	}
	if setActive {
		if err := s.store.DeactivateAllSessions(ctx); err != nil {
			return Session{}, fmt.Errorf("deactivate sessions: %w", err)
		}
	}
	sess := Session{
		ID:        uuid.NewString(),
		Title:     title,
		Date:      DateOnly(date),
		IsActive:  setActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	s.changed(ctx)
	return sess, nil
}

// UpdateSession changes title and date; the active flag is left alone.
func (s *Service) UpdateSession(ctx context.Context, id, title string, date time.Time) (Session, error) {
	title = strings.TrimSpace(title)
	if title == "" || date.IsZero() {
		return Session{}, validationError("title and date are required")
	}
	ok, err := s.store.UpdateSession(ctx, id, title, DateOnly(date))
	if err != nil {
		return Session{}, fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	s.changed(ctx)
	return s.GetSession(ctx, id)
}

// ToggleActive sets the session's active flag. Activation clears the flag on
// all sessions first, in a separate write.
func (s *Service) ToggleActive(ctx context.Context, id string, active bool) (Session, error) {
	if active {
		if err := s.store.DeactivateAllSessions(ctx); err != nil {
			return Session{}, fmt.Errorf("deactivate sessions: %w", err)
		}
	}
	ok, err := s.store.SetSessionActive(ctx, id, active)
	if err != nil {
		return Session{}, fmt.Errorf("toggle session: %w", err)
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	slog.InfoContext(ctx, "session active flag changed", "session_id", id, "active", active)
	s.changed(ctx)
	return s.GetSession(ctx, id)
}

// DeleteSession removes the session's logs first, then the session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	n, err := s.store.DeleteLogsBySession(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session logs: %w", err)
	}
	ok, err := s.store.DeleteSession(ctx, id)
	if n > 0 || ok {
		s.changed(ctx)
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "session deleted", "session_id", id, "logs_removed", n)
	return nil
}

// GetSession returns a single session.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return Session{}, ErrNotFound
	}
	return *sess, nil
}

// ActiveSession returns the session currently accepting scans.
func (s *Service) ActiveSession(ctx context.Context) (Session, error) {
	sess, err := s.store.ActiveSession(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("active session: %w", err)
	}
	if sess == nil {
		return Session{}, ErrNoActiveSession
	}
	return *sess, nil
}

// ListSessions returns every session, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	res, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return res, nil
}

// MarkPresent records presence for the pair. When a log already exists it is
// returned with created=false and nothing is written.
func (s *Service) MarkPresent(ctx context.Context, attendeeID, sessionID string) (Log, bool, error) {
	existing, err := s.store.FindLog(ctx, attendeeID, sessionID)
	if err != nil {
		return Log{}, false, fmt.Errorf("find log: %w", err)
	}
	if existing != nil {
		return *existing, false, nil
	}

	l := Log{
		ID:         uuid.NewString(),
		AttendeeID: attendeeID,
		SessionID:  sessionID,
		ScannedAt:  s.now().UTC(),
		Status:     StatusPresent,
	}
	inserted, err := s.store.InsertLog(ctx, l)
	if err != nil {
		return Log{}, false, fmt.Errorf("insert log: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent insert for the same pair.
		winner, err := s.store.FindLog(ctx, attendeeID, sessionID)
		if err != nil || winner == nil {
			return l, false, err
		}
		return *winner, false, nil
	}
	s.changed(ctx)
	return l, true, nil
}

// MarkAbsent deletes any log for the pair. It reports whether a row was removed.
func (s *Service) MarkAbsent(ctx context.Context, attendeeID, sessionID string) (bool, error) {
	n, err := s.store.DeleteLog(ctx, attendeeID, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete log: %w", err)
	}
	if n > 0 {
		s.changed(ctx)
	}
	return n > 0, nil
}

// ListLogs returns logs, restricted to sessionIDs when given.
func (s *Service) ListLogs(ctx context.Context, sessionIDs ...string) ([]Log, error) {
	res, err := s.store.ListLogs(ctx, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return res, nil
}
