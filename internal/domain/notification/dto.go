// internal/domain/notification/dto.go
package notification

// DTOs

type CreateNotificationRequest struct {
	Type          NotificationType       `json:"type" binding:"required"`
	Title         string                 `json:"title" binding:"required,max=255"`
	Message       string                 `json:"message" binding:"required"`
	ReferenceID   string                 `json:"referenceId,omitempty"`
	ReferenceType string                 `json:"referenceType,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Priority      Priority               `json:"priority,omitempty"`
	Action        *Action                `json:"action,omitempty"`
}

type UpdateNotificationRequest struct {
	ID     string `json:"_id"`
	IsRead *bool  `json:"isRead"`
	All    bool   `json:"all,omitempty"`
}

type DeleteNotificationRequest struct {
	ID string `json:"_id" binding:"required"`
}

type ListFilters struct {
	Type  *NotificationType `form:"type"`
	Limit int               `form:"limit"`
}

type ListResponse struct {
	Notifications []Notification `json:"data"`
	UnreadCount   int            `json:"unreadCount"`
	TotalCount    int            `json:"totalCount"`
}
