package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
)

var base = time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

func person(id string, cat attendance.Category) attendance.Attendee {
	return attendance.Attendee{ID: id, FullName: id, Category: cat}
}

func scan(attendee, session string, offset time.Duration) attendance.Log {
	return attendance.Log{
		ID:         attendee + "@" + session,
		AttendeeID: attendee,
		SessionID:  session,
		ScannedAt:  base.Add(offset),
		Status:     attendance.StatusPresent,
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rate(tt.part, tt.total), "Rate(%d, %d)", tt.part, tt.total)
	}
}

func TestPresentCountCountsDistinctAttendees(t *testing.T) {
	logs := []attendance.Log{
		scan("a", "s1", 0),
		scan("a", "s1", time.Minute),
		scan("b", "s1", 0),
		scan("c", "s2", 0),
	}
	assert.Equal(t, 2, PresentCount(logs, "s1"))
	assert.Equal(t, 1, PresentCount(logs, "s2"))
	assert.Equal(t, 0, PresentCount(logs, "s3"))
}

func TestDashboard(t *testing.T) {
	attendees := []attendance.Attendee{
		person("a", attendance.CategoryTeam),
		person("b", attendance.CategoryStudent),
		person("c", attendance.CategoryGuest),
		person("d", attendance.CategoryGuest),
	}
	active := &attendance.Session{ID: "s2", IsActive: true}
	logs := []attendance.Log{
		scan("a", "s1", 0),
		scan("b", "s1", 0),
		scan("c", "s1", 0),
		scan("a", "s2", 0),
	}

	sum := Dashboard(attendees, active, logs)
	assert.Equal(t, 4, sum.TotalAttendees)
	assert.Equal(t, 1, sum.PresentToday)
	assert.Equal(t, 75, sum.AbsenceRate)
	assert.Same(t, active, sum.ActiveSession)

	noSession := Dashboard(attendees, nil, logs)
	assert.Equal(t, 0, noSession.PresentToday)
	assert.Equal(t, 100, noSession.AbsenceRate)
}

func TestDashboardWithNoAttendeesHasZeroAbsenceRate(t *testing.T) {
	sum := Dashboard(nil, &attendance.Session{ID: "s1"}, nil)
	assert.Equal(t, 0, sum.TotalAttendees)
	assert.Equal(t, 0, sum.AbsenceRate)

	// Logs left behind by deleted attendees must not push the rate negative.
	sum = Dashboard(nil, &attendance.Session{ID: "s1"}, []attendance.Log{scan("ghost", "s1", 0)})
	assert.Equal(t, 0, sum.AbsenceRate)
}

func TestSessionBreakdown(t *testing.T) {
	attendees := []attendance.Attendee{
		person("t1", attendance.CategoryTeam),
		person("t2", attendance.CategoryTeam),
		person("p1", attendance.CategoryStudent),
		person("p2", attendance.CategoryGuest),
		person("p3", attendance.CategoryGuest),
	}
	logs := []attendance.Log{
		scan("t1", "s1", 0),
		scan("p2", "s1", 0),
		scan("p3", "s1", 0),
		scan("p1", "s2", 0),
	}

	b := SessionBreakdown(attendees, logs, "s1")
	assert.Equal(t, "s1", b.SessionID)
	assert.Equal(t, 2, b.Team.Total)
	assert.Equal(t, 1, b.Team.PresentCount)
	assert.Equal(t, 50, b.Team.Rate)
	assert.Equal(t, "t2", b.Team.Absent[0].ID)

	assert.Equal(t, 3, b.Participants.Total)
	assert.Equal(t, 2, b.Participants.PresentCount)
	assert.Equal(t, 67, b.Participants.Rate)
	require.Len(t, b.Participants.Absent, 1)
	assert.Equal(t, "p1", b.Participants.Absent[0].ID)

	empty := SessionBreakdown(nil, nil, "s1")
	assert.Equal(t, 0, empty.Team.Rate)
	assert.NotNil(t, empty.Team.Present)
}

func TestTrend(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	sessions := []attendance.Session{
		{ID: "s3", Title: "Day 3", Date: day(3)},
		{ID: "s1", Title: "Day 1", Date: day(1)},
		{ID: "s2", Title: "Day 2", Date: day(2)},
	}
	logs := []attendance.Log{
		scan("a", "s1", 0),
		scan("b", "s1", 0),
		scan("a", "s3", 0),
	}

	points := Trend(sessions, logs, 2)
	require.Len(t, points, 2)
	assert.Equal(t, "s2", points[0].SessionID)
	assert.Equal(t, 0, points[0].Attendees)
	assert.Equal(t, "s3", points[1].SessionID)
	assert.Equal(t, 1, points[1].Attendees)

	all := Trend(sessions, logs, 0)
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[0].Attendees)
	// Input order is untouched.
	assert.Equal(t, "s3", sessions[0].ID)
}

func TestCategoryDistribution(t *testing.T) {
	shares := CategoryDistribution([]attendance.Attendee{
		person("a", attendance.CategoryStudent),
		person("b", attendance.CategoryStudent),
		person("c", attendance.CategoryGuest),
		person("d", attendance.CategoryTeam),
	})
	assert.Equal(t, []Share{
		{Category: attendance.CategoryTeam, Count: 1, Percent: 25},
		{Category: attendance.CategoryStudent, Count: 2, Percent: 50},
		{Category: attendance.CategoryGuest, Count: 1, Percent: 25},
	}, shares)

	for _, s := range CategoryDistribution(nil) {
		assert.Zero(t, s.Percent)
	}
}
