// internal/repository/memory/notification_store.go
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"duka-service/internal/domain/notification"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

// NotificationStore is an in-memory implementation of the notification store
// boundary. It backs tests and local development without PostgreSQL, and
// enforces the same unread-scoped dedup backstop as the SQL schema.
type NotificationStore struct {
	mu    sync.Mutex
	items map[string]*notification.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{items: make(map[string]*notification.Notification)}
}

func (s *NotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ReferenceID != "" {
		for _, existing := range s.items {
			if existing.Ref() == n.Ref() && !existing.IsRead {
				return xerrors.ErrDuplicateEntry
			}
		}
	}

	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.Priority == "" {
		n.Priority = notification.PriorityMedium
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now

	cp := *n
	s.items[n.ID] = &cp
	return nil
}

func (s *NotificationStore) FindByID(ctx context.Context, id string) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *NotificationStore) FindByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error) {
	return s.findByReference(ref, false)
}

func (s *NotificationStore) FindUnreadByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error) {
	return s.findByReference(ref, true)
}

func (s *NotificationStore) findByReference(ref notification.Reference, unreadOnly bool) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *notification.Notification
	for _, n := range s.items {
		if n.Ref() != ref {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		if best == nil || n.CreatedAt.After(best.CreatedAt) {
			best = n
		}
	}
	if best == nil {
		return nil, xerrors.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

// ListWithCounts filters and orders under a single lock hold, so the counters
// always agree with the returned rows.
func (s *NotificationStore) ListWithCounts(ctx context.Context, filters *notification.ListFilters) ([]notification.Notification, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := 0
	out := []notification.Notification{}
	for _, n := range s.items {
		if !n.IsRead {
			unread++
		}
		if filters.Type != nil && n.Type != *filters.Type {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filters.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, unread, len(s.items), nil
}

func (s *NotificationStore) SetRead(ctx context.Context, id string, isRead bool) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}

	n.IsRead = isRead
	if isRead {
		n.ReadAt = sql.NullTime{Time: time.Now(), Valid: true}
	} else {
		n.ReadAt = sql.NullTime{}
	}
	n.UpdatedAt = time.Now()

	cp := *n
	return &cp, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	now := time.Now()
	for _, n := range s.items {
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = sql.NullTime{Time: now, Valid: true}
			n.UpdatedAt = now
			updated++
		}
	}
	return updated, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *NotificationStore) DeleteByReference(ctx context.Context, ref notification.Reference) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.items {
		if n.Ref() == ref {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountAll reports the total number of stored notifications.
func (s *NotificationStore) CountAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}
