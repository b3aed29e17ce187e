package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHourlyNextTrigger(t *testing.T) {
	s := New(time.UTC)
	s.AddHourly("j", 30, func(ctx context.Context) {})
	next := s.jobs[0].next

	now := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), next(now))

	// Already past the minute: roll to the next hour.
	now = time.Date(2025, 3, 1, 10, 45, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC), next(now))

	// Exactly on the trigger instant counts as passed.
	now = time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC), next(now))
}

func TestDailyNextTrigger(t *testing.T) {
	s := New(time.UTC)
	s.AddDaily("j", 8, 0, func(ctx context.Context) {})
	next := s.jobs[0].next

	now := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), next(now))

	now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC), next(now))
}

func TestNextTriggerUsesConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	s := New(loc)
	s.AddDaily("j", 8, 0, func(ctx context.Context) {})
	next := s.jobs[0].next

	// 01:00 UTC is 09:00 in Taipei, so today's 08:00 local has passed.
	now := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	got := next(now)
	require.Equal(t, loc, got.Location())
	require.Equal(t, time.Date(2025, 3, 2, 8, 0, 0, 0, loc), got)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(time.UTC)
	var fired atomic.Int32
	// Schedule far enough out that the job cannot fire during the test.
	minute := (time.Now().Minute() + 30) % 60
	s.AddHourly("j", minute, func(ctx context.Context) { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	require.Zero(t, fired.Load())
}
