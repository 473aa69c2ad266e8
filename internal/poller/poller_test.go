// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOverlappingFetch(t *testing.T) {
	var inFlight, maxInFlight, total int32

	slowFetch := func(ctx context.Context) error {
		cur := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)

		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
				break
			}
		}

		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&total, 1)
		return nil
	}

	p := New(slowFetch)
	p.Start(context.Background())
	defer p.Close()

	// Hammer the poller with forced refreshes while fetches are slow.
	for i := 0; i < 10; i++ {
		p.RequestRefresh()
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&total) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight),
		"no second fetch may be dispatched before the first completes")
}

func TestRefreshResetsBackoff(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	fetch := func(ctx context.Context) error {
		if fail.Load() {
			return &StatusError{Code: http.StatusInternalServerError}
		}
		return nil
	}

	p := New(fetch)
	p.Start(context.Background())
	defer p.Close()

	// Drive a few failing fetches through the refresh signal.
	for i := 0; i < 3; i++ {
		p.RequestRefresh()
		require.Eventually(t, func() bool {
			return p.State().Failure == FailureServerError
		}, time.Second, 5*time.Millisecond)
	}

	fail.Store(false)
	p.RequestRefresh()

	assert.Eventually(t, func() bool {
		st := p.State()
		return st.Failure == FailureNone && st.Interval == DefaultInterval
	}, time.Second, 5*time.Millisecond)
}

func TestOfflineSignalPausesWithoutFetching(t *testing.T) {
	var total int32
	p := New(func(ctx context.Context) error {
		atomic.AddInt32(&total, 1)
		return nil
	})
	p.Start(context.Background())
	defer p.Close()

	p.Offline()
	assert.Eventually(t, func() bool {
		return p.State().Mode == ModePaused
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&total))

	p.Online()
	assert.Eventually(t, func() bool {
		st := p.State()
		return st.Mode == ModeActive && atomic.LoadInt32(&total) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCloseStopsLoop(t *testing.T) {
	var total int32
	p := New(func(ctx context.Context) error {
		atomic.AddInt32(&total, 1)
		return nil
	})
	p.Start(context.Background())

	p.RequestRefresh()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&total) == 1
	}, time.Second, 5*time.Millisecond)

	p.Close()
	before := atomic.LoadInt32(&total)

	p.RequestRefresh() // dropped, loop is gone
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt32(&total))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureNone, Classify(nil))
	assert.Equal(t, FailureOffline, Classify(ErrOffline))
	assert.Equal(t, FailureServerError, Classify(&StatusError{Code: 500}))
	assert.Equal(t, FailureUnreachable, Classify(errors.New("connection refused")))
	assert.Equal(t, FailureUnreachable, Classify(context.DeadlineExceeded))
}

func TestAPIClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"_id":"n1","type":"order_received","title":"New Order","message":"New order: Widget (x2)"}],"unreadCount":1,"totalCount":3}`))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, srv.Client())
	res, err := client.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, res.Notifications, 1)
	assert.Equal(t, "n1", res.Notifications[0].ID)
	assert.Equal(t, 1, res.UnreadCount)
	assert.Equal(t, 3, res.TotalCount)
}

func TestAPIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, srv.Client())
	_, err := client.Fetch(context.Background(), 0)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, FailureServerError, Classify(err))
}

func TestAPIClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewAPIClient(srv.URL, nil)
	_, err := client.Fetch(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, FailureUnreachable, Classify(err))
}
