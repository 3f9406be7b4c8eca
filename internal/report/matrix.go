// Package report turns attendance rows into a presence matrix and renders it
// as PDF or XLSX.
package report

import (
	"fmt"
	"slices"
	"time"

	"rollcall/internal/attendance"
)

// Audience selects which attendees appear as rows.
type Audience string

const (
	AudienceAll          Audience = "all"
	AudienceTeam         Audience = "team"
	AudienceParticipants Audience = "participants"
)

// Subtitle is the heading printed under the report title.
func (a Audience) Subtitle() string {
	switch a {
	case AudienceTeam:
		return "Team Members Only"
	case AudienceParticipants:
		return "Participants Only"
	default:
		return "All Attendees"
	}
}

func (a Audience) includes(att attendance.Attendee) bool {
	switch a {
	case AudienceTeam:
		return att.IsTeam()
	case AudienceParticipants:
		return !att.IsTeam()
	default:
		return true
	}
}

// Config is an export request.
type Config struct {
	SessionIDs []string `json:"session_ids"`
	Audience   Audience `json:"audience"`
}

// Validate checks the config and fills the default audience.
func (c *Config) Validate() error {
	if len(c.SessionIDs) == 0 {
		return fmt.Errorf("%w: select at least one session", attendance.ErrValidation)
	}
	switch c.Audience {
	case "":
		c.Audience = AudienceAll
	case AudienceAll, AudienceTeam, AudienceParticipants:
	default:
		return fmt.Errorf("%w: audience must be one of all team participants", attendance.ErrValidation)
	}
	return nil
}

// Row is one attendee line of the matrix; Present is aligned with Matrix.Sessions.
type Row struct {
	Attendee attendance.Attendee
	Present  []bool
	Absences int
}

// Matrix is the attendee × session presence grid.
type Matrix struct {
	Audience Audience
	Sessions []attendance.Session
	Rows     []Row
}

// BuildMatrix keeps the selected sessions in ascending date order and marks a
// cell present iff logs hold a row for that attendee and session.
func BuildMatrix(sessions []attendance.Session, attendees []attendance.Attendee, logs []attendance.Log, cfg Config) Matrix {
	selected := make(map[string]struct{}, len(cfg.SessionIDs))
	for _, id := range cfg.SessionIDs {
		selected[id] = struct{}{}
	}
	var cols []attendance.Session
	for _, s := range sessions {
		if _, ok := selected[s.ID]; ok {
			cols = append(cols, s)
		}
	}
	slices.SortStableFunc(cols, func(a, b attendance.Session) int {
		return a.Date.Compare(b.Date)
	})

	attended := make(map[string]map[string]struct{})
	for _, l := range logs {
		if attended[l.AttendeeID] == nil {
			attended[l.AttendeeID] = make(map[string]struct{})
		}
		attended[l.AttendeeID][l.SessionID] = struct{}{}
	}

	audience := cfg.Audience
	if audience == "" {
		audience = AudienceAll
	}
	m := Matrix{Audience: audience, Sessions: cols}
	for _, a := range attendees {
		if !audience.includes(a) {
			continue
		}
		row := Row{Attendee: a, Present: make([]bool, len(cols))}
		for i, s := range cols {
			_, ok := attended[a.ID][s.ID]
			row.Present[i] = ok
			if !ok {
				row.Absences++
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// Headers returns the column titles: name, category, one per session, absences.
func (m Matrix) Headers() []string {
	h := make([]string, 0, len(m.Sessions)+3)
	h = append(h, "Name", "Category")
	for _, s := range m.Sessions {
		h = append(h, s.Date.Format("Jan 2"))
	}
	return append(h, "Absences")
}

// Cell returns "P" or "A".
func (r Row) Cell(i int) string {
	if r.Present[i] {
		return "P"
	}
	return "A"
}

// FileName is the download name for a report generated at now.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("Attendance-Report-%s.%s", now.Format(time.DateOnly), ext)
}
