// internal/repository/postgres/notification_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"duka-service/internal/domain/notification"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
)

// A partial unique index backstops the engine's read-then-write dedup:
//
//	CREATE UNIQUE INDEX uq_notifications_unread_reference
//	ON notifications (type, reference_id)
//	WHERE reference_id <> '' AND is_read = false;
//
// The index is scoped to unread rows so a read out_of_stock notification does
// not block a fresh alert for the same product.
const uniqueViolationCode = "23505"

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, type, title, message, reference_id, reference_type, data, is_read, read_at, priority, action, created_at, updated_at`

// Create persists a new notification, assigning a ULID if the caller did not.
// A unique-index violation on the dedup key maps to xerrors.ErrDuplicateEntry
// so the engine can fetch and return the existing record instead of failing.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.Priority == "" {
		n.Priority = notification.PriorityMedium
	}

	dataJSON, err := marshalJSON(n.Data)
	if err != nil {
		return xerrors.Wrap(err, "failed to marshal data")
	}
	actionJSON, err := marshalJSON(n.Action)
	if err != nil {
		return xerrors.Wrap(err, "failed to marshal action")
	}

	query := `
		INSERT INTO notifications (id, type, title, message, reference_id, reference_type, data, is_read, priority, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		RETURNING created_at, updated_at
	`

	err = r.db.pool.QueryRow(
		ctx, query,
		n.ID, n.Type, n.Title, n.Message, n.ReferenceID, n.ReferenceType,
		dataJSON, n.Priority, actionJSON,
	).Scan(&n.CreatedAt, &n.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return xerrors.ErrDuplicateEntry
	}
	return err
}

// FindByID retrieves a notification by ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*notification.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns)
	return r.queryOne(ctx, query, id)
}

// FindByReference returns the most recent notification matching the dedup key,
// regardless of read state.
func (r *NotificationRepository) FindByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE type = $1 AND reference_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, notificationColumns)
	return r.queryOne(ctx, query, ref.Type, ref.ReferenceID)
}

// FindUnreadByReference is FindByReference scoped to unread rows. Used by the
// out-of-stock scan, whose dedup deliberately ignores read notifications.
func (r *NotificationRepository) FindUnreadByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE type = $1 AND reference_id = $2 AND is_read = false
		ORDER BY created_at DESC
		LIMIT 1
	`, notificationColumns)
	return r.queryOne(ctx, query, ref.Type, ref.ReferenceID)
}

// ListWithCounts retrieves notifications newest-first, optionally filtered by
// type, together with the unread and total counters. The three queries run in
// one transaction so the counters always agree with the returned rows.
func (r *NotificationRepository) ListWithCounts(ctx context.Context, filters *notification.ListFilters) ([]notification.Notification, int, int, error) {
	var (
		items  []notification.Notification
		unread int
		total  int
	)

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		if items, err = listNotifications(ctx, tx, filters); err != nil {
			return err
		}
		if unread, err = countNotifications(ctx, tx, `SELECT COUNT(*) FROM notifications WHERE is_read = false`); err != nil {
			return err
		}
		total, err = countNotifications(ctx, tx, `SELECT COUNT(*) FROM notifications`)
		return err
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return items, unread, total, nil
}

func listNotifications(ctx context.Context, q querier, filters *notification.ListFilters) ([]notification.Notification, error) {
	conditions := []string{"true"}
	args := []interface{}{}
	argPos := 1

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	limit := filters.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, notificationColumns, strings.Join(conditions, " AND "), argPos)
	args = append(args, limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	notifications := []notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func countNotifications(ctx context.Context, q querier, query string) (int, error) {
	var count int
	if err := q.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, xerrors.Wrap(err, "failed to count notifications")
	}
	return count, nil
}

// SetRead updates the read flag, setting or clearing read_at to match, and
// returns the updated record.
func (r *NotificationRepository) SetRead(ctx context.Context, id string, isRead bool) (*notification.Notification, error) {
	var readAt interface{}
	if isRead {
		readAt = time.Now()
	}

	query := fmt.Sprintf(`
		UPDATE notifications
		SET is_read = $1, read_at = $2, updated_at = now()
		WHERE id = $3
		RETURNING %s
	`, notificationColumns)

	return r.queryOne(ctx, query, isRead, readAt, id)
}

// MarkAllRead marks every unread notification as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1, updated_at = now()
		WHERE is_read = false
	`
	result, err := r.db.pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, xerrors.Wrap(err, "failed to mark all as read")
	}
	return result.RowsAffected(), nil
}

// Delete removes a notification by ID.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return xerrors.Wrap(err, "failed to delete notification")
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// DeleteByReference removes every notification matching the dedup key,
// returning the number removed. Zero matches is not an error.
func (r *NotificationRepository) DeleteByReference(ctx context.Context, ref notification.Reference) (int64, error) {
	result, err := r.db.pool.Exec(ctx,
		`DELETE FROM notifications WHERE type = $1 AND reference_id = $2`,
		ref.Type, ref.ReferenceID,
	)
	if err != nil {
		return 0, xerrors.Wrap(err, "failed to delete notifications by reference")
	}
	return result.RowsAffected(), nil
}

func (r *NotificationRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*notification.Notification, error) {
	n, err := scanNotification(r.db.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to query notification")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var n notification.Notification
	var dataJSON, actionJSON []byte

	err := row.Scan(
		&n.ID, &n.Type, &n.Title, &n.Message, &n.ReferenceID, &n.ReferenceType,
		&dataJSON, &n.IsRead, &n.ReadAt, &n.Priority, &actionJSON,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			return nil, xerrors.Wrap(err, "failed to unmarshal data")
		}
	}
	if len(actionJSON) > 0 {
		if err := json.Unmarshal(actionJSON, &n.Action); err != nil {
			return nil, xerrors.Wrap(err, "failed to unmarshal action")
		}
	}
	return &n, nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *notification.Action:
		if val == nil {
			return nil, nil
		}
	case map[string]interface{}:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
