package stats

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"rollcall/internal/attendance"
)

// DefaultLeaderboardSize is the number of entries kept per board.
const DefaultLeaderboardSize = 5

// Entry is one attendee's standing.
type Entry struct {
	AttendeeID      string              `json:"attendee_id"`
	Name            string              `json:"name"`
	Category        attendance.Category `json:"category"`
	TotalAttendance int                 `json:"total_attendance"`
	// AvgDelayMinutes is the rounded mean, over attended sessions, of the
	// minutes between this attendee's scan and the session's first scan.
	AvgDelayMinutes int `json:"avg_delay_minutes"`
}

// Board groups the three rankings.
type Board struct {
	TopTeam         []Entry `json:"top_team"`
	TopParticipants []Entry `json:"top_participants"`
	EarlyBirds      []Entry `json:"early_birds"`
}

type tally struct {
	entry      Entry
	delayTotal float64
}

// Leaderboard ranks attendees by attendance and by average check-in delay.
// Early birds need more than one attendance. Logs for unknown attendees are
// skipped; a repeated (attendee, session) pair counts once, at its earliest scan.
func Leaderboard(attendees []attendance.Attendee, logs []attendance.Log, limit int) Board {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	known := make(map[string]attendance.Attendee, len(attendees))
	for _, a := range attendees {
		known[a.ID] = a
	}

	type pair struct{ attendee, session string }
	firstScan := make(map[pair]time.Time)
	earliest := make(map[string]time.Time)
	for _, l := range logs {
		if prev, ok := earliest[l.SessionID]; !ok || l.ScannedAt.Before(prev) {
			earliest[l.SessionID] = l.ScannedAt
		}
		p := pair{l.AttendeeID, l.SessionID}
		if prev, ok := firstScan[p]; !ok || l.ScannedAt.Before(prev) {
			firstScan[p] = l.ScannedAt
		}
	}

	tallies := make(map[string]*tally)
	for p, at := range firstScan {
		a, ok := known[p.attendee]
		if !ok {
			continue
		}
		t, ok := tallies[a.ID]
		if !ok {
			t = &tally{entry: Entry{AttendeeID: a.ID, Name: a.FullName, Category: a.Category}}
			tallies[a.ID] = t
		}
		t.entry.TotalAttendance++
		t.delayTotal += at.Sub(earliest[p.session]).Minutes()
	}

	entries := make([]Entry, 0, len(tallies))
	for _, t := range tallies {
		t.entry.AvgDelayMinutes = int(math.Round(t.delayTotal / float64(t.entry.TotalAttendance)))
		entries = append(entries, t.entry)
	}

	var team, participants, early []Entry
	for _, e := range entries {
		if e.Category == attendance.CategoryTeam {
			team = append(team, e)
		} else {
			participants = append(participants, e)
		}
		if e.TotalAttendance > 1 {
			early = append(early, e)
		}
	}

	byAttendance := func(a, b Entry) int {
		if c := cmp.Compare(b.TotalAttendance, a.TotalAttendance); c != 0 {
			return c
		}
		return byName(a, b)
	}
	byDelay := func(a, b Entry) int {
		if c := cmp.Compare(a.AvgDelayMinutes, b.AvgDelayMinutes); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalAttendance, a.TotalAttendance); c != 0 {
			return c
		}
		return byName(a, b)
	}

	return Board{
		TopTeam:         top(team, byAttendance, limit),
		TopParticipants: top(participants, byAttendance, limit),
		EarlyBirds:      top(early, byDelay, limit),
	}
}

func byName(a, b Entry) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.AttendeeID, b.AttendeeID)
}

func top(entries []Entry, less func(a, b Entry) int, limit int) []Entry {
	slices.SortFunc(entries, less)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		return []Entry{}
	}
	return entries
}
