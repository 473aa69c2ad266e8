// internal/poller/poller.go
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FetchFunc performs one notification fetch. A nil return is a success; a
// non-nil error is classified with Classify to pick the backoff policy.
type FetchFunc func(ctx context.Context) error

// Poller runs the adaptive polling loop. One goroutine owns the state and the
// timer, and fetches synchronously inside it, so at most one fetch is ever in
// flight and the next timer is armed strictly after the previous fetch
// resolves.
type Poller struct {
	fetch    FetchFunc
	classify func(error) FailureClass
	logger   *zap.Logger

	events chan Event

	mu    sync.Mutex
	state State

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

type Option func(*Poller)

// WithClassifier replaces the default fetch-error classifier.
func WithClassifier(fn func(error) FailureClass) Option {
	return func(p *Poller) { p.classify = fn }
}

// WithLogger attaches a logger; the default discards.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func New(fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		fetch:    fetch,
		classify: Classify,
		logger:   zap.NewNop(),
		events:   make(chan Event, 16),
		state:    NewState(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling loop. The loop exits when ctx is cancelled or
// Close is called.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Close stops the loop and cancels the pending timer. Safe to call more than
// once; blocks until the loop has exited.
func (p *Poller) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
}

// State returns a snapshot of the poller state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// External signals. Each maps to one state-machine event; they never block
// the caller and are dropped once the poller has been closed.

func (p *Poller) Online()         { p.send(EventOnline) }
func (p *Poller) Offline()        { p.send(EventOffline) }
func (p *Poller) Visible()        { p.send(EventVisible) }
func (p *Poller) Hidden()         { p.send(EventHidden) }
func (p *Poller) OpenPanel()      { p.send(EventPanelOpen) }
func (p *Poller) ClosePanel()     { p.send(EventPanelClose) }
func (p *Poller) RequestRefresh() { p.send(EventRefresh) }

func (p *Poller) send(ev Event) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.stopped)

	timer := time.NewTimer(p.State().NextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return

		case <-timer.C:
			p.step(ctx, EventTick)
			timer.Reset(p.State().NextDelay())

		case ev := <-p.events:
			p.step(ctx, ev)
			// Any event may change the cadence; re-arm from scratch.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.State().NextDelay())
		}
	}
}

// step applies one event and, if the transition asks for it, performs the
// fetch synchronously before returning. Completion events feed back through
// Apply so backoff state always reflects the last attempt.
func (p *Poller) step(ctx context.Context, ev Event) {
	now := p.now()

	p.mu.Lock()
	next, fetchNow := Apply(p.state, ev, now)
	p.state = next
	p.mu.Unlock()

	if !fetchNow {
		return
	}

	err := p.fetch(ctx)
	done := p.now()

	var completion Event
	switch p.classify(err) {
	case FailureNone:
		completion = EventFetchSuccess
	case FailureOffline:
		completion = EventFetchOffline
	case FailureServerError:
		completion = EventFetchServerError
	default:
		completion = EventFetchUnreachable
	}

	p.mu.Lock()
	p.state, _ = Apply(p.state, completion, done)
	st := p.state
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("notification fetch failed",
			zap.String("class", st.Failure.String()),
			zap.String("mode", st.Mode.String()),
			zap.Duration("interval", st.Interval),
			zap.Error(err),
		)
	}
}
