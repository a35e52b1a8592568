package Alerts

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"Gmao/Models"
)

// SlackNotifier posts a short attachment to one channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token, slack.OptionDebug(false)),
		channel: channel,
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, n Notification) error {
	attachment := slack.Attachment{
		Color:     slackColor(n),
		Title:     n.Title,
		TitleLink: n.Link,
		Text:      n.Message,
		Footer:    string(n.Type),
	}
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(n.Title, false),
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return fmt.Errorf("posting to slack channel %s: %w", s.channel, err)
	}
	return nil
}

func slackColor(n Notification) string {
	switch n.Type {
	case Models.NotifyLowStock, Models.NotifyPlanReminder:
		return "warning"
	case Models.NotifyWorkOrderCompleted:
		return "good"
	}
	return "#439FE0"
}
