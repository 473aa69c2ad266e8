// internal/poller/client.go
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"duka-service/internal/domain/notification"
)

// ErrOffline marks a fetch attempted with no network available. Callers that
// track connectivity (an Offline signal was the last thing seen) wrap their
// fetch errors with it.
var ErrOffline = errors.New("network offline")

// StatusError is a reachable server answering with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Classify maps a fetch error to its failure class: nil is a success,
// ErrOffline is offline, a non-2xx response is a server error, and anything
// transport-level (refused connection, timeout, DNS) is unreachable.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrOffline) {
		return FailureOffline
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return FailureServerError
	}
	return FailureUnreachable
}

// APIClient fetches notifications from the service.
type APIClient struct {
	baseURL string
	http    *http.Client

	// OnResult, when set, receives each successful fetch payload.
	OnResult func(*notification.ListResponse)
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{baseURL: baseURL, http: httpClient}
}

// Fetch retrieves up to limit notifications. It is shaped as a FetchFunc via
// Fetcher.
func (c *APIClient) Fetch(ctx context.Context, limit int) (*notification.ListResponse, error) {
	u, err := url.Parse(c.baseURL + "/api/notifications")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(limit))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("notification endpoint unreachable: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload struct {
		Success     bool                        `json:"success"`
		Data        []notification.Notification `json:"data"`
		UnreadCount int                         `json:"unreadCount"`
		TotalCount  int                         `json:"totalCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return &notification.ListResponse{
		Notifications: payload.Data,
		UnreadCount:   payload.UnreadCount,
		TotalCount:    payload.TotalCount,
	}, nil
}

// Fetcher adapts the client to the poller's FetchFunc.
func (c *APIClient) Fetcher(limit int) FetchFunc {
	return func(ctx context.Context) error {
		res, err := c.Fetch(ctx, limit)
		if err != nil {
			return err
		}
		if c.OnResult != nil {
			c.OnResult(res)
		}
		return nil
	}
}
