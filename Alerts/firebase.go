package Alerts

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"Gmao/Models"
)

// FirebaseNotifier pushes to an FCM topic per site, e.g. maintenance_site_3.
type FirebaseNotifier struct {
	client *messaging.Client
	topic  string
}

// NewFirebaseNotifier initialises the Firebase app from a service account file.
func NewFirebaseNotifier(ctx context.Context, credentialsFile, topic string) (*FirebaseNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	log.Info("Firebase initialized successfully")
	return &FirebaseNotifier{client: client, topic: topic}, nil
}

func (f *FirebaseNotifier) Notify(ctx context.Context, n Notification) error {
	if f.client == nil {
		return fmt.Errorf("firebase client not initialized")
	}

	response, err := f.client.Send(ctx, buildMessage(f.topic, n))
	if err != nil {
		return fmt.Errorf("error sending Firebase message: %w", err)
	}

	log.WithField("response", response).Debug("Firebase notification sent")
	return nil
}

func buildMessage(topic string, n Notification) *messaging.Message {
	data := map[string]string{
		"type":    string(n.Type),
		"site_id": strconv.FormatUint(uint64(n.SiteID), 10),
		"link":    n.Link,
	}
	for k, v := range n.Data {
		data[k] = v
	}

	priority := "normal"
	color := "#1E88E5"
	if n.Type == Models.NotifyLowStock || n.Type == Models.NotifyPlanReminder {
		priority = "high"
		color = "#FF0000"
	}

	return &messaging.Message{
		Topic: fmt.Sprintf("%s_site_%d", topic, n.SiteID),
		Data:  data,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Color: color,
				Sound: "default",
			},
			Priority: priority,
		},
	}
}
