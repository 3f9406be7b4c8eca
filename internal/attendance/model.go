package attendance

import (
	"strings"
	"time"
)

// Category classifies an attendee.
type Category string

const (
	CategoryTeam    Category = "Team"
	CategoryStudent Category = "Student"
	CategoryGuest   Category = "Guest"
)

// Categories lists every accepted category.
var Categories = []Category{CategoryTeam, CategoryStudent, CategoryGuest}

// ParseCategory matches s case-insensitively against the fixed category set.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// Status is the tag stored on an attendance log. Only StatusPresent is written;
// late and early are accepted by the schema for rows written by older clients.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusEarly   Status = "early"
)

// Attendee is a registered person eligible to be marked present.
type Attendee struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	Category     Category  `json:"category"`
	StudentID    *string   `json:"student_id"`
	Organization *string   `json:"organization"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsTeam reports whether the attendee belongs to the organizing team.
func (a Attendee) IsTeam() bool { return a.Category == CategoryTeam }

// AttendeeInput carries the editable attendee fields.
type AttendeeInput struct {
	FullName     string   `json:"full_name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone"`
	Category     Category `json:"category" validate:"required,oneof=Team Student Guest"`
	StudentID    string   `json:"student_id"`
	Organization string   `json:"organization"`
}

func (in AttendeeInput) normalized() AttendeeInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Organization = strings.TrimSpace(in.Organization)
	if c, ok := ParseCategory(string(in.Category)); ok {
		in.Category = c
	}
	return in
}

// Session is a single dated event occurrence.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Log records that an attendee was present at a session.
type Log struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"attendee_id"`
	SessionID  string    `json:"session_id"`
	ScannedAt  time.Time `json:"scanned_at"`
	Status     Status    `json:"status"`
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
