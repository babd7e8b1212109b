package services

import (
	"context"
	"testing"
	"time"

	"memories-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDwell = 50 * time.Millisecond

func waitDone(t *testing.T, s *ViewSession) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("view session for %s did not finish, state %s", s.ImageID(), s.State())
	}
}

func TestViewSession_Transitions(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := newViewSession("img", "b", testDwell, func(*ViewSession) { fired <- struct{}{} })
	assert.Equal(t, ViewStateLoading, s.State())

	require.True(t, s.Ready())
	assert.Equal(t, ViewStateTiming, s.State())
	assert.False(t, s.Ready())

	waitDone(t, s)
	assert.Equal(t, ViewStateViewed, s.State())
	assert.Len(t, fired, 1)
	assert.False(t, s.Cancel())
}

func TestViewSession_CancelStopsTimer(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := newViewSession("img", "b", testDwell, func(*ViewSession) { fired <- struct{}{} })

	require.True(t, s.Ready())
	require.True(t, s.Cancel())
	assert.Equal(t, ViewStateCancelled, s.State())
	assert.False(t, s.Cancel())
	assert.False(t, s.Ready())

	time.Sleep(2 * testDwell)
	assert.Empty(t, fired)
}

func TestViewSession_CancelWhileLoading(t *testing.T) {
	s := newViewSession("img", "b", testDwell, nil)
	require.True(t, s.Cancel())
	waitDone(t, s)
	assert.Equal(t, ViewStateCancelled, s.State())
}

func TestViewTracker_DwellScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewViewTracker(f.images, testDwell)

	result, err := f.images.Send(ctx, photo(), "a", []string{"b", "c"})
	require.NoError(t, err)

	sessionB, err := tracker.Ready(ctx, "conn-b", "b", result.ImageID)
	require.NoError(t, err)
	sessionC, err := tracker.Ready(ctx, "conn-c", "c", result.ImageID)
	require.NoError(t, err)

	time.Sleep(testDwell / 2)
	assert.True(t, tracker.Hidden("conn-c", "c", result.ImageID))

	waitDone(t, sessionB)
	assert.Equal(t, ViewStateViewed, sessionB.State())
	assert.Equal(t, ViewStateCancelled, sessionC.State())

	undeliveredB, err := f.images.ListUndelivered(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, undeliveredB)

	undeliveredC, err := f.images.ListUndelivered(ctx, "c")
	require.NoError(t, err)
	require.Len(t, undeliveredC, 1)
	assert.Equal(t, result.ImageID, undeliveredC[0].ImageID)
}

func TestViewTracker_ReadyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewViewTracker(f.images, time.Minute)
	t.Cleanup(tracker.Close)

	result, err := f.images.Send(ctx, photo(), "a", []string{"b"})
	require.NoError(t, err)

	first, err := tracker.Ready(ctx, "conn", "b", result.ImageID)
	require.NoError(t, err)
	second, err := tracker.Ready(ctx, "conn", "b", result.ImageID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestViewTracker_RejectsUnknownAndViewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewViewTracker(f.images, testDwell)

	_, err := tracker.Ready(ctx, "conn", "b", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	result, err := f.images.Send(ctx, photo(), "a", []string{"b"})
	require.NoError(t, err)
	_, err = f.images.MarkViewed(ctx, result.ImageID, "b")
	require.NoError(t, err)

	_, err = tracker.Ready(ctx, "conn", "b", result.ImageID)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestViewTracker_CancelConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewViewTracker(f.images, time.Minute)

	first, err := f.images.Send(ctx, photo(), "a", []string{"b"})
	require.NoError(t, err)
	second, err := f.images.Send(ctx, photo(), "a", []string{"b"})
	require.NoError(t, err)

	s1, err := tracker.Ready(ctx, "conn-1", "b", first.ImageID)
	require.NoError(t, err)
	s2, err := tracker.Ready(ctx, "conn-1", "b", second.ImageID)
	require.NoError(t, err)
	other, err := tracker.Ready(ctx, "conn-2", "b", first.ImageID)
	require.NoError(t, err)

	assert.Equal(t, 2, tracker.CancelConnection("conn-1"))
	assert.Equal(t, ViewStateCancelled, s1.State())
	assert.Equal(t, ViewStateCancelled, s2.State())
	assert.Equal(t, ViewStateTiming, other.State())

	tracker.Close()
	assert.Equal(t, ViewStateCancelled, other.State())
	assert.False(t, tracker.Hidden("conn-2", "b", first.ImageID))
}
