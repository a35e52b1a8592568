package Alerts

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"Gmao/Models"
)

// Inbox stores notifications for the in-app feed. An identical notification
// (same type, site, user and title) inside Window is not stored twice.
type Inbox struct {
	DB     *gorm.DB
	Window time.Duration
	Now    func() time.Time
}

func NewInbox(db *gorm.DB) *Inbox {
	return &Inbox{DB: db, Window: 24 * time.Hour, Now: time.Now}
}

func (i *Inbox) Notify(ctx context.Context, n Notification) error {
	db := i.DB.WithContext(ctx)

	if i.Window > 0 {
		q := db.Model(&Models.Notification{}).
			Where("type = ? AND site_id = ? AND title = ?", n.Type, n.SiteID, n.Title).
			Where("created_at >= ?", i.Now().Add(-i.Window))
		if n.UserID != nil {
			q = q.Where("user_id = ?", *n.UserID)
		} else {
			q = q.Where("user_id IS NULL")
		}
		var recent int64
		if err := q.Count(&recent).Error; err != nil {
			return fmt.Errorf("checking recent notifications: %w", err)
		}
		if recent > 0 {
			return nil
		}
	}

	row := Models.Notification{
		SiteID:  n.SiteID,
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		Link:    n.Link,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}
	return nil
}
