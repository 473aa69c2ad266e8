// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"
)

// Order is the slice of the order record the notification core needs;
// the rest of the order lifecycle lives with the orders service.
type Order struct {
	ID          string     `json:"_id" db:"id"`
	OrderNumber string     `json:"orderNumber" db:"order_number"`
	Status      string     `json:"status" db:"status"`
	Total       float64    `json:"total" db:"total"`
	Items       []CartLine `json:"items" db:"items"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

type CartLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

// ActionableStatuses are the statuses that warrant an order notification.
var ActionableStatuses = []string{"pending", "processing"}

// IsActionable reports whether the order status (case-insensitive) should
// carry a notification.
func (o *Order) IsActionable() bool {
	s := strings.ToLower(o.Status)
	for _, want := range ActionableStatuses {
		if s == want {
			return true
		}
	}
	return false
}
