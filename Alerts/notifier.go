package Alerts

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"Gmao/Models"
)

// Notification is one outbound event. Delivery is best-effort.
type Notification struct {
	Type    Models.NotificationType
	SiteID  uint
	UserID  *uint
	Title   string
	Message string
	Link    string
	Data    map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Multi delivers to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }

// Emit sends n and only logs a failure. Callers invoke it after their
// transaction has committed.
func Emit(ctx context.Context, notifier Notifier, n Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.WithFields(log.Fields{
			"type":    n.Type,
			"site_id": n.SiteID,
			"title":   n.Title,
		}).WithError(err).Warn("notification delivery failed")
	}
}
