// Package stats aggregates attendance rows that are already in memory into
// dashboard figures, session rosters, trends and leaderboards.
package stats

import (
	"math"

	"rollcall/internal/attendance"
)

// Rate returns round(100 × part / total), or 0 when total is not positive.
func Rate(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// PresentIDs returns the set of attendee ids holding a log for sessionID.
func PresentIDs(logs []attendance.Log, sessionID string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, l := range logs {
		if l.SessionID == sessionID {
			ids[l.AttendeeID] = struct{}{}
		}
	}
	return ids
}

// PresentCount is the number of distinct attendees with a log for sessionID.
func PresentCount(logs []attendance.Log, sessionID string) int {
	return len(PresentIDs(logs, sessionID))
}

// Summary holds the dashboard stat cards.
type Summary struct {
	TotalAttendees int                 `json:"total_attendees"`
	PresentToday   int                 `json:"present_today"`
	AbsenceRate    int                 `json:"absence_rate"`
	ActiveSession  *attendance.Session `json:"active_session"`
}

// Dashboard computes the summary for the active session; with no active
// session nobody is present.
func Dashboard(attendees []attendance.Attendee, active *attendance.Session, logs []attendance.Log) Summary {
	sum := Summary{TotalAttendees: len(attendees), ActiveSession: active}
	if active != nil {
		sum.PresentToday = PresentCount(logs, active.ID)
	}
	absent := sum.TotalAttendees - sum.PresentToday
	if absent < 0 {
		absent = 0
	}
	sum.AbsenceRate = Rate(absent, sum.TotalAttendees)
	return sum
}

// Group is one half of a session roster.
type Group struct {
	Present      []attendance.Attendee `json:"present"`
	Absent       []attendance.Attendee `json:"absent"`
	Total        int                   `json:"total"`
	PresentCount int                   `json:"present_count"`
	Rate         int                   `json:"rate"`
}

func (g *Group) add(a attendance.Attendee, present bool) {
	g.Total++
	if present {
		g.PresentCount++
		g.Present = append(g.Present, a)
	} else {
		g.Absent = append(g.Absent, a)
	}
}

// Breakdown splits a session roster into team members and participants.
type Breakdown struct {
	SessionID    string `json:"session_id"`
	Team         Group  `json:"team"`
	Participants Group  `json:"participants"`
}

// SessionBreakdown classifies every attendee as present or absent at sessionID.
// Attendee order is preserved inside each list.
func SessionBreakdown(attendees []attendance.Attendee, logs []attendance.Log, sessionID string) Breakdown {
	present := PresentIDs(logs, sessionID)
	b := Breakdown{
		SessionID:    sessionID,
		Team:         Group{Present: []attendance.Attendee{}, Absent: []attendance.Attendee{}},
		Participants: Group{Present: []attendance.Attendee{}, Absent: []attendance.Attendee{}},
	}
	for _, a := range attendees {
		_, ok := present[a.ID]
		if a.IsTeam() {
			b.Team.add(a, ok)
		} else {
			b.Participants.add(a, ok)
		}
	}
	b.Team.Rate = Rate(b.Team.PresentCount, b.Team.Total)
	b.Participants.Rate = Rate(b.Participants.PresentCount, b.Participants.Total)
	return b
}
