// internal/poller/state.go
package poller

import "time"

// Cadence bounds and policy constants. Interval stays within
// [MinInterval, MaxInterval] at all times.
const (
	DefaultInterval = 30 * time.Second
	MinInterval     = 15 * time.Second
	MaxInterval     = 120 * time.Second

	// PanelInterval is the fast cadence while the notification panel is open.
	PanelInterval = 15 * time.Second

	// OfflineInterval is the cadence parked for when an offline poller resumes.
	OfflineInterval = 60 * time.Second

	// LinearStep is the backoff increment after a server error.
	LinearStep = 15 * time.Second

	// VisibleStaleAfter gates the fetch-on-visibility trigger so rapid tab
	// switching cannot cause a fetch storm.
	VisibleStaleAfter = 30 * time.Second

	// PanelDebounce suppresses a redundant fetch when the panel reopens
	// shortly after the last one.
	PanelDebounce = 5 * time.Second
)

type Mode int

const (
	ModeActive Mode = iota
	ModePaused
)

func (m Mode) String() string {
	if m == ModePaused {
		return "paused"
	}
	return "active"
}

// FailureClass drives the backoff policy applied after a failed fetch.
type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureOffline
	FailureServerError
	FailureUnreachable
)

func (f FailureClass) String() string {
	switch f {
	case FailureOffline:
		return "offline"
	case FailureServerError:
		return "server_error"
	case FailureUnreachable:
		return "unreachable"
	default:
		return "none"
	}
}

// Event is an input to the poller state machine.
type Event int

const (
	// EventTick fires when the poll timer elapses.
	EventTick Event = iota
	EventFetchSuccess
	EventFetchOffline
	EventFetchServerError
	EventFetchUnreachable
	// EventOnline and EventOffline mirror the environment's connectivity.
	EventOnline
	EventOffline
	// EventVisible and EventHidden mirror tab visibility.
	EventVisible
	EventHidden
	// EventRefresh is the external "refresh requested" signal; it always
	// forces a fetch.
	EventRefresh
	EventPanelOpen
	EventPanelClose
)

// State is the poller's complete condition. It is transitioned only by Apply,
// so tests can drive it directly without a runtime harness.
type State struct {
	Mode        Mode
	Interval    time.Duration
	LastFetchAt time.Time
	Failure     FailureClass
	PanelOpen   bool
	Hidden      bool
}

// NewState returns the initial state: active at the default cadence, no
// immediate fetch.
func NewState() State {
	return State{Mode: ModeActive, Interval: DefaultInterval}
}

// Apply transitions the state for an event and reports whether a fetch should
// be dispatched now. It is a pure function of (state, event, now).
func Apply(s State, ev Event, now time.Time) (State, bool) {
	switch ev {
	case EventTick:
		return s, s.Mode == ModeActive && !s.Hidden

	case EventFetchSuccess:
		s.Mode = ModeActive
		s.Interval = DefaultInterval
		s.Failure = FailureNone
		s.LastFetchAt = now
		return s, false

	case EventFetchOffline:
		s.Mode = ModePaused
		s.Interval = OfflineInterval
		s.Failure = FailureOffline
		s.LastFetchAt = now
		return s, false

	case EventFetchServerError:
		// Reachable but erroring: stay active, back off linearly.
		s.Interval = clamp(s.Interval + LinearStep)
		s.Failure = FailureServerError
		s.LastFetchAt = now
		return s, false

	case EventFetchUnreachable:
		// No response at all: pause and back off exponentially.
		s.Mode = ModePaused
		s.Interval = clamp(s.Interval * 2)
		s.Failure = FailureUnreachable
		s.LastFetchAt = now
		return s, false

	case EventOnline:
		s.Mode = ModeActive
		s.Interval = DefaultInterval
		s.Failure = FailureNone
		return s, true

	case EventOffline:
		s.Mode = ModePaused
		s.Interval = OfflineInterval
		return s, false

	case EventVisible:
		s.Hidden = false
		stale := now.Sub(s.LastFetchAt) > VisibleStaleAfter
		return s, s.Mode == ModeActive && stale

	case EventHidden:
		s.Hidden = true
		return s, false

	case EventRefresh:
		s.Mode = ModeActive
		s.Interval = DefaultInterval
		s.Failure = FailureNone
		return s, true

	case EventPanelOpen:
		s.PanelOpen = true
		s.Mode = ModeActive
		return s, now.Sub(s.LastFetchAt) > PanelDebounce

	case EventPanelClose:
		s.PanelOpen = false
		return s, false
	}
	return s, false
}

// NextDelay is the delay until the next timer fire: a fixed fast cadence
// while the panel is open, else the current interval.
func (s State) NextDelay() time.Duration {
	if s.PanelOpen {
		return PanelInterval
	}
	return s.Interval
}

func clamp(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
