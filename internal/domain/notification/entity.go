// internal/domain/notification/entity.go
package notification

import (
	"database/sql"
	"time"
)

type NotificationType string

const (
	TypeOrderReceived NotificationType = "order_received"
	TypeOutOfStock    NotificationType = "out_of_stock"
	TypeLowStock      NotificationType = "low_stock"
	TypePromotionEnd  NotificationType = "promotion_end"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Action is an optional call-to-action rendered alongside the notification.
type Action struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

type Notification struct {
	ID            string                 `json:"_id" db:"id"`
	Type          NotificationType       `json:"type" db:"type"`
	Title         string                 `json:"title" db:"title"`
	Message       string                 `json:"message" db:"message"`
	ReferenceID   string                 `json:"referenceId,omitempty" db:"reference_id"`
	ReferenceType string                 `json:"referenceType,omitempty" db:"reference_type"`
	Data          map[string]interface{} `json:"data,omitempty" db:"data"`
	IsRead        bool                   `json:"isRead" db:"is_read"`
	ReadAt        sql.NullTime           `json:"readAt,omitempty" db:"read_at"`
	Priority      Priority               `json:"priority" db:"priority"`
	Action        *Action                `json:"action,omitempty" db:"action"`
	CreatedAt     time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time              `json:"updatedAt" db:"updated_at"`
}

// Reference identifies the dedup key: at most one live notification may exist
// per (Type, ReferenceID) pair unless explicitly re-created after deletion.
type Reference struct {
	Type        NotificationType
	ReferenceID string
}

func (n *Notification) Ref() Reference {
	return Reference{Type: n.Type, ReferenceID: n.ReferenceID}
}
