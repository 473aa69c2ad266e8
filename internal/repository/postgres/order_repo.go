// internal/repository/postgres/order_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"duka-service/internal/domain/order"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

// OrderRepository is the read-side collaborator the notification core needs;
// order lifecycle writes happen elsewhere.
type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// RecentByStatus retrieves the most recent orders whose status matches any of
// the given values, case-insensitively.
func (r *OrderRepository) RecentByStatus(ctx context.Context, statuses []string, limit int) ([]order.Order, error) {
	if limit < 1 {
		limit = 50
	}

	query := `
		SELECT id, order_number, status, total, items, created_at
		FROM orders
		WHERE lower(status) = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.pool.Query(ctx, query, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// FindByID retrieves a single order.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	query := `
		SELECT id, order_number, status, total, items, created_at
		FROM orders
		WHERE id = $1
	`

	o, err := scanOrder(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return o, nil
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var itemsJSON []byte

	err := row.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.Total, &itemsJSON, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
	}
	return &o, nil
}
