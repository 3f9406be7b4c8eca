package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCountsAndLatestLog(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	counts, err := repo.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
	latest, err := repo.LatestLog(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	s := mustSession(t, svc, "Day 1", "2025-01-01", true)
	a := mustAttendee(t, svc, "ada", CategoryTeam)
	b := mustAttendee(t, svc, "bob", CategoryGuest)
	_, _, err = svc.MarkPresent(ctx, a.ID, s.ID)
	require.NoError(t, err)
	// Rows written by older clients may carry late/early.
	_, err = repo.InsertLog(ctx, Log{
		ID:         "legacy",
		AttendeeID: b.ID,
		SessionID:  s.ID,
		ScannedAt:  time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
		Status:     StatusLate,
	})
	require.NoError(t, err)

	counts, err = repo.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{{StatusLate, 1}, {StatusPresent, 1}}, counts)

	latest, err = repo.LatestLog(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "legacy", latest.ID)
}
