package stats

import (
	"slices"
	"time"

	"rollcall/internal/attendance"
)

// TrendPoint is the attendance of one session.
type TrendPoint struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Attendees int       `json:"attendees"`
}

// Trend returns distinct attendance for the last n sessions by date, oldest
// first. A non-positive n keeps every session.
func Trend(sessions []attendance.Session, logs []attendance.Log, n int) []TrendPoint {
	sorted := slices.Clone(sessions)
	slices.SortStableFunc(sorted, func(a, b attendance.Session) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}

	bySession := make(map[string]map[string]struct{}, len(sorted))
	for _, l := range logs {
		set, ok := bySession[l.SessionID]
		if !ok {
			set = make(map[string]struct{})
			bySession[l.SessionID] = set
		}
		set[l.AttendeeID] = struct{}{}
	}

	points := make([]TrendPoint, 0, len(sorted))
	for _, s := range sorted {
		points = append(points, TrendPoint{
			SessionID: s.ID,
			Title:     s.Title,
			Date:      s.Date,
			Attendees: len(bySession[s.ID]),
		})
	}
	return points
}

// Share is the part of the attendee base in one category.
type Share struct {
	Category attendance.Category `json:"category"`
	Count    int                 `json:"count"`
	Percent  int                 `json:"percent"`
}

// CategoryDistribution returns one share per category in the fixed category order.
func CategoryDistribution(attendees []attendance.Attendee) []Share {
	counts := make(map[attendance.Category]int, len(attendance.Categories))
	for _, a := range attendees {
		counts[a.Category]++
	}
	shares := make([]Share, 0, len(attendance.Categories))
	for _, c := range attendance.Categories {
		shares = append(shares, Share{Category: c, Count: counts[c], Percent: Rate(counts[c], len(attendees))})
	}
	return shares
}
