package models

import (
	"encoding/json"
	"time"
)

// NotificationCategory groups notices for the admin inbox.
type NotificationCategory string

const (
	NotificationCategoryAdmissions NotificationCategory = "admissions"
	NotificationCategoryInventory  NotificationCategory = "inventory"
	NotificationCategoryOrders     NotificationCategory = "orders"
	NotificationCategorySystem     NotificationCategory = "system"
	NotificationCategoryPayments   NotificationCategory = "payments"
	NotificationCategoryUsers      NotificationCategory = "users"
)

// NotificationPriority orders notices for the admin inbox.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// Notification is one categorized, prioritized admin notice.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	Type      string               `db:"type" json:"type"`
	Category  NotificationCategory `db:"category" json:"category"`
	Priority  NotificationPriority `db:"priority" json:"priority"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	RelatedID *string              `db:"related_id" json:"related_id,omitempty"`
	Metadata  json.RawMessage      `db:"metadata" json:"metadata,omitempty"`
	IsRead    bool                 `db:"is_read" json:"is_read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter defines filters for the notification inbox.
type NotificationFilter struct {
	Category   NotificationCategory
	Priority   NotificationPriority
	UnreadOnly bool
	Search     string
	Page       int
	PageSize   int
}
