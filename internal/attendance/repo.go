package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Store is the persistence contract the service depends on.
// Get* methods return nil without error when the row does not exist.
type Store interface {
	InsertAttendee(ctx context.Context, a Attendee) error
	UpdateAttendee(ctx context.Context, a Attendee) (bool, error)
	DeleteAttendee(ctx context.Context, id string) (bool, error)
	GetAttendee(ctx context.Context, id string) (*Attendee, error)
	ListAttendees(ctx context.Context, categories []Category) ([]Attendee, error)

	InsertSession(ctx context.Context, s Session) error
	UpdateSession(ctx context.Context, id, title string, date time.Time) (bool, error)
	SetSessionActive(ctx context.Context, id string, active bool) (bool, error)
	DeactivateAllSessions(ctx context.Context) error
	DeleteSession(ctx context.Context, id string) (bool, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ActiveSession(ctx context.Context) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)

	FindLog(ctx context.Context, attendeeID, sessionID string) (*Log, error)
	InsertLog(ctx context.Context, l Log) (bool, error)
	DeleteLog(ctx context.Context, attendeeID, sessionID string) (int64, error)
	DeleteLogsByAttendee(ctx context.Context, attendeeID string) (int64, error)
	DeleteLogsBySession(ctx context.Context, sessionID string) (int64, error)
	ListLogs(ctx context.Context, sessionIDs []string) ([]Log, error)
}

// Repository persists attendance data through database/sql. The SQL sticks to
// the subset shared by Postgres and SQLite and numbers placeholders in order of
// first appearance so both drivers bind them identically.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const attendeeColumns = `id, full_name, email, phone, category, student_id, organization, created_at`

func scanAttendee(row interface{ Scan(...any) error }) (Attendee, error) {
	var a Attendee
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.Phone, &a.Category, &a.StudentID, &a.Organization, &a.CreatedAt)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, err
}

// InsertAttendee writes a new attendee.
func (r *Repository) InsertAttendee(ctx context.Context, a Attendee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendees (`+attendeeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.FullName, a.Email, a.Phone, string(a.Category), a.StudentID, a.Organization, a.CreatedAt)
	return err
}

// UpdateAttendee replaces the editable fields; it reports false when no row matched.
func (r *Repository) UpdateAttendee(ctx context.Context, a Attendee) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendees
		SET full_name = $1, email = $2, phone = $3, category = $4, student_id = $5, organization = $6
		WHERE id = $7
	`, a.FullName, a.Email, a.Phone, string(a.Category), a.StudentID, a.Organization, a.ID)
	return affected(res, err)
}

// DeleteAttendee removes the attendee row only; logs are handled by the caller.
func (r *Repository) DeleteAttendee(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	return affected(res, err)
}

// GetAttendee returns a single attendee by id.
func (r *Repository) GetAttendee(ctx context.Context, id string) (*Attendee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id)
	a, err := scanAttendee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListAttendees returns attendees in any of the categories, all when none given, ordered by name.
func (r *Repository) ListAttendees(ctx context.Context, categories []Category) ([]Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees`
	args := make([]any, 0, len(categories))
	if len(categories) > 0 {
		for _, c := range categories {
			args = append(args, string(c))
		}
		query += " WHERE category IN (" + placeholders(1, len(args)) + ")"
	}
	query += " ORDER BY full_name, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

const sessionColumns = `id, title, date, is_active, created_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.Title, &s.Date, &s.IsActive, &s.CreatedAt); err != nil {
		return Session{}, err
	}
	s.Date = DateOnly(s.Date)
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

// InsertSession writes a new session.
func (r *Repository) InsertSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Title, DateOnly(s.Date), s.IsActive, s.CreatedAt)
	return err
}

// UpdateSession changes title and date and never touches is_active.
func (r *Repository) UpdateSession(ctx context.Context, id, title string, date time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET title = $1, date = $2 WHERE id = $3`, title, DateOnly(date), id)
	return affected(res, err)
}

// SetSessionActive flips the flag on one session.
func (r *Repository) SetSessionActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = $1 WHERE id = $2`, active, id)
	return affected(res, err)
}

// DeactivateAllSessions clears is_active on every active session.
func (r *Repository) DeactivateAllSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = $1 WHERE is_active = $2`, false, true)
	return err
}

// DeleteSession removes the session row only; logs are handled by the caller.
func (r *Repository) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return affected(res, err)
}

// GetSession returns a single session by id.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return optionalSession(scanSession(row))
}

// ActiveSession returns the active session, the most recently created one if
// an interrupted activation left several.
func (r *Repository) ActiveSession(ctx context.Context) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE is_active = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, true)
	return optionalSession(scanSession(row))
}

func optionalSession(s Session, err error) (*Session, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListSessions returns every session, newest date first.
func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

const logColumns = `id, attendee_id, session_id, scanned_at, status`

func scanLog(row interface{ Scan(...any) error }) (Log, error) {
	var l Log
	err := row.Scan(&l.ID, &l.AttendeeID, &l.SessionID, &l.ScannedAt, &l.Status)
	l.ScannedAt = l.ScannedAt.UTC()
	return l, err
}

// FindLog returns the log for an (attendee, session) pair.
func (r *Repository) FindLog(ctx context.Context, attendeeID, sessionID string) (*Log, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM attendance_logs
		WHERE attendee_id = $1 AND session_id = $2
		LIMIT 1
	`, attendeeID, sessionID)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// InsertLog writes a log unless one already exists for the pair. It reports
// whether a row was inserted.
func (r *Repository) InsertLog(ctx context.Context, l Log) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (attendee_id, session_id) DO NOTHING
	`, l.ID, l.AttendeeID, l.SessionID, l.ScannedAt, string(l.Status))
	return affected(res, err)
}

// DeleteLog removes any log for the pair.
func (r *Repository) DeleteLog(ctx context.Context, attendeeID, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_logs WHERE attendee_id = $1 AND session_id = $2`, attendeeID, sessionID)
	return rowsAffected(res, err)
}

// DeleteLogsByAttendee removes every log referencing the attendee.
func (r *Repository) DeleteLogsByAttendee(ctx context.Context, attendeeID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_logs WHERE attendee_id = $1`, attendeeID)
	return rowsAffected(res, err)
}

// DeleteLogsBySession removes every log referencing the session.
func (r *Repository) DeleteLogsBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_logs WHERE session_id = $1`, sessionID)
	return rowsAffected(res, err)
}

// ListLogs returns logs ordered by scan time, restricted to sessionIDs when given.
func (r *Repository) ListLogs(ctx context.Context, sessionIDs []string) ([]Log, error) {
	query := `SELECT ` + logColumns + ` FROM attendance_logs`
	args := make([]any, 0, len(sessionIDs))
	if len(sessionIDs) > 0 {
		for _, id := range sessionIDs {
			args = append(args, id)
		}
		query += " WHERE session_id IN (" + placeholders(1, len(args)) + ")"
	}
	query += " ORDER BY scanned_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// placeholders renders "$from, ..., $(from+n-1)".
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affected(res sql.Result, err error) (bool, error) {
	n, err := rowsAffected(res, err)
	return n > 0, err
}
