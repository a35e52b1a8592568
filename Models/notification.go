package Models

import (
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyWorkOrderGenerated NotificationType = "work_order_generated"
	NotifyWorkOrderAssigned  NotificationType = "work_order_assigned"
	NotifyWorkOrderCompleted NotificationType = "work_order_completed"
	NotifyLowStock           NotificationType = "low_stock"
	NotifyPlanReminder       NotificationType = "plan_reminder"
)

// Notification is the in-app inbox row. UserID nil means site-wide.
type Notification struct {
	gorm.Model
	SiteID  uint             `json:"site_id" gorm:"index"`
	UserID  *uint            `json:"user_id" gorm:"index"`
	Type    NotificationType `json:"type" gorm:"size:32;not null"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Link    string           `json:"link"`
	IsRead  bool             `json:"is_read"`
}
