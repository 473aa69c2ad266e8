// internal/service/notification/engine.go
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duka-service/internal/cache"
	"duka-service/internal/domain/notification"
	"duka-service/internal/domain/order"
	"duka-service/internal/domain/product"
	xerrors "duka-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// cachePrefix namespaces every cache entry derived from notification data.
const cachePrefix = "notifications:"

// reconcileInterval gates the opportunistic reconciliation scans triggered
// from the read path. Only the first request after the interval elapses pays
// for a scan.
const reconcileInterval = 2 * time.Minute

// backfillWindow is how many recent pending/processing orders the backfill
// pass inspects.
const backfillWindow = 50

// Store is the persistence boundary for notification records.
type Store interface {
	Create(ctx context.Context, n *notification.Notification) error
	FindByID(ctx context.Context, id string) (*notification.Notification, error)
	FindByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error)
	FindUnreadByReference(ctx context.Context, ref notification.Reference) (*notification.Notification, error)
	ListWithCounts(ctx context.Context, filters *notification.ListFilters) ([]notification.Notification, int, int, error)
	SetRead(ctx context.Context, id string, isRead bool) (*notification.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByReference(ctx context.Context, ref notification.Reference) (int64, error)
}

// OrderStore is the slice of the orders collaborator the engine reads.
type OrderStore interface {
	FindByID(ctx context.Context, id string) (*order.Order, error)
	RecentByStatus(ctx context.Context, statuses []string, limit int) ([]order.Order, error)
}

// ProductStore is the slice of the products collaborator the engine reads.
type ProductStore interface {
	OutOfStock(ctx context.Context) ([]product.Product, error)
}

// Broadcaster pushes a refresh signal to connected clients after a write.
type Broadcaster interface {
	BroadcastRefresh()
}

// ReconcileResult reports what a reconciliation pass did.
type ReconcileResult struct {
	Checked int `json:"checked"`
	Created int `json:"created"`
}

// Engine creates notifications, enforces the (type, referenceId) dedup
// invariant across its creation paths, and runs the reconciliation scans.
type Engine struct {
	store    Store
	orders   OrderStore
	products ProductStore
	cache    *cache.TTLCache
	aside    *cache.Aside
	bus      *cache.Bus
	hub      Broadcaster
	logger   *zap.Logger

	reconcileGate rate.Sometimes
}

func NewEngine(store Store, orders OrderStore, products ProductStore, c *cache.TTLCache, bus *cache.Bus, hub Broadcaster, logger *zap.Logger) *Engine {
	return &Engine{
		store:         store,
		orders:        orders,
		products:      products,
		cache:         c,
		aside:         cache.NewAside(c),
		bus:           bus,
		hub:           hub,
		logger:        logger,
		reconcileGate: rate.Sometimes{Interval: reconcileInterval},
	}
}

// Create persists a new notification and invalidates the notifications cache
// prefix so subsequent reads observe it without waiting for TTL expiry. A
// dedup-key collision from the store backstop resolves to the existing record
// rather than an error.
func (e *Engine) Create(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	n := &notification.Notification{
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Data:          req.Data,
		Priority:      req.Priority,
		Action:        req.Action,
	}

	if err := e.store.Create(ctx, n); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			existing, findErr := e.store.FindByReference(ctx, notification.Reference{Type: req.Type, ReferenceID: req.ReferenceID})
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	e.invalidate(ctx)
	return n, nil
}

// CreateOrderNotification creates an order_received notification for an
// actionable order. Non-actionable statuses are a deliberate no-op, not an
// error. Dedup scope: any existing notification for the order suppresses a
// new one and is returned unchanged.
//
// Persistence failures are logged and swallowed: order creation must never
// fail because its notification did.
func (e *Engine) CreateOrderNotification(ctx context.Context, o *order.Order) *notification.Notification {
	if o == nil || !o.IsActionable() {
		return nil
	}

	existing, err := e.store.FindByReference(ctx, orderRef(o.ID))
	if err == nil {
		return existing
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		e.logger.Error("order notification dedup check failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return nil
	}

	n, err := e.Create(ctx, &notification.CreateNotificationRequest{
		Type:          notification.TypeOrderReceived,
		Title:         orderTitle(o),
		Message:       orderMessage(o),
		ReferenceID:   o.ID,
		ReferenceType: "order",
		Priority:      notification.PriorityHigh,
		Data: map[string]interface{}{
			"orderNumber": o.OrderNumber,
			"total":       o.Total,
			"itemCount":   len(o.Items),
		},
		Action: &notification.Action{
			Label: "View Order",
			Link:  "/orders/" + o.ID,
		},
	})
	if err != nil {
		e.logger.Error("failed to create order notification",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return nil
	}
	return n
}

// CreateOrderNotificationByID is CreateOrderNotification for callers that only
// carry an order ID, such as order-event hooks. An unknown order is logged and
// skipped under the same soft-failure discipline.
func (e *Engine) CreateOrderNotificationByID(ctx context.Context, orderID string) *notification.Notification {
	o, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		e.logger.Error("failed to load order for notification",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil
	}
	return e.CreateOrderNotification(ctx, o)
}

// RemoveOrderNotifications deletes every order_received notification for the
// order. Called when an order leaves the pending/processing statuses.
// Idempotent: zero matches is fine.
func (e *Engine) RemoveOrderNotifications(ctx context.Context, orderID string) (int64, error) {
	deleted, err := e.store.DeleteByReference(ctx, orderRef(orderID))
	if err != nil {
		return 0, fmt.Errorf("failed to remove order notifications: %w", err)
	}
	if deleted > 0 {
		e.invalidate(ctx)
	}
	return deleted, nil
}

// CheckOutOfStockNotifications scans depleted products and alerts on any that
// have no *unread* notification. The unread-only scope is narrower than the
// order dedup on purpose: once a prior alert is read, a fresh depletion
// should be able to alert again.
func (e *Engine) CheckOutOfStockNotifications(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	products, err := e.products.OutOfStock(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to scan out-of-stock products: %w", err)
	}

	for _, p := range products {
		res.Checked++

		_, err := e.store.FindUnreadByReference(ctx, notification.Reference{Type: notification.TypeOutOfStock, ReferenceID: p.ID})
		if err == nil {
			continue
		}
		if !errors.Is(err, xerrors.ErrNotFound) {
			e.logger.Error("out-of-stock dedup check failed",
				zap.String("product_id", p.ID),
				zap.Error(err),
			)
			continue
		}

		_, err = e.Create(ctx, &notification.CreateNotificationRequest{
			Type:          notification.TypeOutOfStock,
			Title:         "Out of Stock",
			Message:       fmt.Sprintf("%s is out of stock", p.Name),
			ReferenceID:   p.ID,
			ReferenceType: "product",
			Priority:      notification.PriorityHigh,
			Data: map[string]interface{}{
				"sku":      p.SKU,
				"quantity": p.Quantity,
			},
			Action: &notification.Action{
				Label: "Restock",
				Link:  "/products/" + p.ID,
			},
		})
		if err != nil {
			e.logger.Error("failed to create out-of-stock notification",
				zap.String("product_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		res.Created++
	}

	return res, nil
}

// EnsurePendingOrderNotifications backfills order notifications for recent
// pending/processing orders that missed creation-time notification. It is a
// safety net converging on the same dedup invariant as the primary path.
func (e *Engine) EnsurePendingOrderNotifications(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	orders, err := e.orders.RecentByStatus(ctx, order.ActionableStatuses, backfillWindow)
	if err != nil {
		return res, fmt.Errorf("failed to scan pending orders: %w", err)
	}

	for i := range orders {
		o := &orders[i]
		res.Checked++

		_, err := e.store.FindByReference(ctx, orderRef(o.ID))
		if err == nil {
			continue
		}
		if !errors.Is(err, xerrors.ErrNotFound) {
			e.logger.Error("backfill dedup check failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}

		if n := e.CreateOrderNotification(ctx, o); n != nil {
			res.Created++
		}
	}

	return res, nil
}

// MaybeReconcile runs both reconciliation scans, detached from the caller, at
// most once per reconcileInterval. Concurrent callers inside the interval are
// no-ops; scan failures are logged, never surfaced.
func (e *Engine) MaybeReconcile() {
	e.reconcileGate.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if res, err := e.EnsurePendingOrderNotifications(ctx); err != nil {
				e.logger.Error("pending order backfill failed", zap.Error(err))
			} else if res.Created > 0 {
				e.logger.Info("pending order backfill created notifications",
					zap.Int("checked", res.Checked),
					zap.Int("created", res.Created),
				)
			}

			if res, err := e.CheckOutOfStockNotifications(ctx); err != nil {
				e.logger.Error("out-of-stock scan failed", zap.Error(err))
			} else if res.Created > 0 {
				e.logger.Info("out-of-stock scan created notifications",
					zap.Int("checked", res.Checked),
					zap.Int("created", res.Created),
				)
			}
		}()
	})
}

// GetNotifications serves the read path through the cache-aside helper.
func (e *Engine) GetNotifications(ctx context.Context, filters *notification.ListFilters) (*notification.ListResponse, error) {
	key := listCacheKey(filters)

	v, err := e.aside.GetByClass(ctx, "notifications", key, func(ctx context.Context) (interface{}, error) {
		items, unread, total, err := e.store.ListWithCounts(ctx, filters)
		if err != nil {
			return nil, err
		}
		return &notification.ListResponse{
			Notifications: items,
			UnreadCount:   unread,
			TotalCount:    total,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return v.(*notification.ListResponse), nil
}

// SetRead updates a notification's read state and returns the updated record.
func (e *Engine) SetRead(ctx context.Context, id string, isRead bool) (*notification.Notification, error) {
	n, err := e.store.SetRead(ctx, id, isRead)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return n, nil
}

// MarkAllRead marks every unread notification as read.
func (e *Engine) MarkAllRead(ctx context.Context) (int64, error) {
	updated, err := e.store.MarkAllRead(ctx)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		e.invalidate(ctx)
	}
	return updated, nil
}

// Delete removes a notification by ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}
	e.invalidate(ctx)
	return nil
}

func (e *Engine) invalidate(ctx context.Context) {
	e.cache.InvalidatePattern(cachePrefix)
	if e.bus != nil {
		e.bus.Publish(ctx, cachePrefix)
	}
	if e.hub != nil {
		e.hub.BroadcastRefresh()
	}
}

func listCacheKey(filters *notification.ListFilters) string {
	typ := "all"
	if filters.Type != nil {
		typ = string(*filters.Type)
	}
	return fmt.Sprintf("%slist:%s:%d", cachePrefix, typ, filters.Limit)
}

func orderRef(orderID string) notification.Reference {
	return notification.Reference{Type: notification.TypeOrderReceived, ReferenceID: orderID}
}

func orderTitle(o *order.Order) string {
	if o.OrderNumber != "" {
		return fmt.Sprintf("New Order %s", o.OrderNumber)
	}
	return "New Order Received"
}

// orderMessage concatenates each cart line's name and quantity.
func orderMessage(o *order.Order) string {
	if len(o.Items) == 0 {
		return "New order received"
	}
	lines := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, fmt.Sprintf("%s (x%d)", item.Name, item.Quantity))
	}
	return "New order: " + strings.Join(lines, ", ")
}
