// internal/poller/state_test.go
package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	s := NewState()
	assert.Equal(t, ModeActive, s.Mode)
	assert.Equal(t, DefaultInterval, s.Interval)
	assert.Equal(t, FailureNone, s.Failure)
	assert.False(t, s.PanelOpen)
}

func TestServerErrorBackoffMonotonicAndBounded(t *testing.T) {
	s := NewState()
	now := time.Now()

	prev := s.Interval
	for i := 0; i < 5; i++ {
		s, _ = Apply(s, EventFetchServerError, now)
		if prev+LinearStep <= MaxInterval {
			assert.Equal(t, prev+LinearStep, s.Interval, "interval must grow by exactly one step")
		}
		assert.LessOrEqual(t, s.Interval, MaxInterval)
		assert.Equal(t, ModeActive, s.Mode, "server errors keep the poller active")
		prev = s.Interval
	}
	// 30 + 5*15 = 105s, still under the ceiling.
	assert.Equal(t, 105*time.Second, s.Interval)

	// Two more pushes pin it to the ceiling.
	s, _ = Apply(s, EventFetchServerError, now)
	s, _ = Apply(s, EventFetchServerError, now)
	assert.Equal(t, MaxInterval, s.Interval)

	// Success resets everything.
	s, fetch := Apply(s, EventFetchSuccess, now)
	assert.False(t, fetch)
	assert.Equal(t, DefaultInterval, s.Interval)
	assert.Equal(t, FailureNone, s.Failure)
}

func TestUnreachableDoublesAndPauses(t *testing.T) {
	s := NewState()
	now := time.Now()

	s, _ = Apply(s, EventFetchUnreachable, now)
	assert.Equal(t, ModePaused, s.Mode)
	assert.Equal(t, 60*time.Second, s.Interval)
	assert.Equal(t, FailureUnreachable, s.Failure)

	s, _ = Apply(s, EventFetchUnreachable, now)
	assert.Equal(t, MaxInterval, s.Interval)

	// Ceiling holds.
	s, _ = Apply(s, EventFetchUnreachable, now)
	assert.Equal(t, MaxInterval, s.Interval)
}

func TestOfflineFailurePauses(t *testing.T) {
	s := NewState()
	now := time.Now()

	s, _ = Apply(s, EventFetchOffline, now)
	assert.Equal(t, ModePaused, s.Mode)
	assert.Equal(t, OfflineInterval, s.Interval)
	assert.Equal(t, FailureOffline, s.Failure)

	// Paused poller ignores ticks.
	_, fetch := Apply(s, EventTick, now)
	assert.False(t, fetch)
}

func TestOnlineEventResumesAndFetches(t *testing.T) {
	s := NewState()
	now := time.Now()

	s, _ = Apply(s, EventOffline, now)
	require.Equal(t, ModePaused, s.Mode)

	s, fetch := Apply(s, EventOnline, now)
	assert.True(t, fetch, "coming back online fetches immediately")
	assert.Equal(t, ModeActive, s.Mode)
	assert.Equal(t, DefaultInterval, s.Interval)
}

func TestTickHonorsVisibility(t *testing.T) {
	s := NewState()
	now := time.Now()

	_, fetch := Apply(s, EventTick, now)
	assert.True(t, fetch)

	s, _ = Apply(s, EventHidden, now)
	_, fetch = Apply(s, EventTick, now)
	assert.False(t, fetch, "hidden tab must not fetch on tick")
}

func TestVisibleFetchesOnlyWhenStale(t *testing.T) {
	s := NewState()
	now := time.Now()

	s, _ = Apply(s, EventHidden, now)

	// Fresh fetch: becoming visible right after must not cause a fetch storm.
	s.LastFetchAt = now.Add(-10 * time.Second)
	s2, fetch := Apply(s, EventVisible, now)
	assert.False(t, fetch)
	assert.False(t, s2.Hidden)

	// Stale fetch: visible triggers an immediate one.
	s.LastFetchAt = now.Add(-31 * time.Second)
	_, fetch = Apply(s, EventVisible, now)
	assert.True(t, fetch)

	// But never while paused.
	s.Mode = ModePaused
	_, fetch = Apply(s, EventVisible, now)
	assert.False(t, fetch)
}

func TestRefreshAlwaysForcesFetch(t *testing.T) {
	s := NewState()
	now := time.Now()

	s, _ = Apply(s, EventFetchUnreachable, now)
	require.Equal(t, ModePaused, s.Mode)

	s.LastFetchAt = now // just fetched; refresh has no debounce
	s, fetch := Apply(s, EventRefresh, now)
	assert.True(t, fetch)
	assert.Equal(t, ModeActive, s.Mode)
	assert.Equal(t, DefaultInterval, s.Interval)
	assert.Equal(t, FailureNone, s.Failure)
}

func TestPanelOpenDebounceAndCadence(t *testing.T) {
	s := NewState()
	now := time.Now()

	// Recent fetch: opening the panel is debounced.
	s.LastFetchAt = now.Add(-2 * time.Second)
	s2, fetch := Apply(s, EventPanelOpen, now)
	assert.False(t, fetch)
	assert.True(t, s2.PanelOpen)
	assert.Equal(t, PanelInterval, s2.NextDelay(), "open panel tightens the cadence")

	// Stale fetch: opening the panel fetches.
	s.LastFetchAt = now.Add(-6 * time.Second)
	_, fetch = Apply(s, EventPanelOpen, now)
	assert.True(t, fetch)

	// Opening the panel clears a paused state.
	s.Mode = ModePaused
	s2, _ = Apply(s, EventPanelOpen, now)
	assert.Equal(t, ModeActive, s2.Mode)

	s2, _ = Apply(s2, EventPanelClose, now)
	assert.False(t, s2.PanelOpen)
	assert.Equal(t, s2.Interval, s2.NextDelay())
}

func TestIntervalNeverLeavesBounds(t *testing.T) {
	s := NewState()
	now := time.Now()

	events := []Event{
		EventFetchServerError, EventFetchUnreachable, EventFetchServerError,
		EventFetchOffline, EventOnline, EventFetchUnreachable,
		EventFetchUnreachable, EventFetchServerError, EventFetchSuccess,
	}
	for _, ev := range events {
		s, _ = Apply(s, ev, now)
		assert.GreaterOrEqual(t, s.Interval, MinInterval)
		assert.LessOrEqual(t, s.Interval, MaxInterval)
	}
}
