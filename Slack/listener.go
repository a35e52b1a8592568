package Slack

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Listener receives channel messages over socket mode and answers the ones
// starting with "!".
type Listener struct {
	Commands *Commands
	Channel  string

	api    *slack.Client
	socket *socketmode.Client
}

func NewListener(botToken, appToken, channel string, commands *Commands) *Listener {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
		slack.OptionDebug(false),
	)
	return &Listener{
		Commands: commands,
		Channel:  channel,
		api:      api,
		socket:   socketmode.New(api),
	}
}

// Run blocks until ctx is cancelled or the connection fails.
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case envelope, ok := <-l.socket.Events:
				if !ok {
					return
				}
				l.dispatch(ctx, envelope)
			}
		}
	}()

	log.WithField("channel", l.Channel).Info("Starting Slack command listener")
	return l.socket.RunContext(ctx)
}

func (l *Listener) dispatch(ctx context.Context, envelope socketmode.Event) {
	if envelope.Type != socketmode.EventTypeEventsAPI {
		return
	}
	event, ok := envelope.Data.(slackevents.EventsAPIEvent)
	if !ok {
		log.WithField("type", envelope.Type).Warn("Unexpected Slack event payload")
		return
	}
	if envelope.Request != nil {
		l.socket.Ack(*envelope.Request)
	}
	if event.Type != slackevents.CallbackEvent {
		return
	}
	msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}

	reply, ok := l.Reply(ctx, msg)
	if !ok {
		return
	}
	if _, _, err := l.api.PostMessageContext(ctx, msg.Channel, slack.MsgOptionText(reply, false)); err != nil {
		log.WithError(err).Error("Failed to post Slack reply")
	}
}

// Reply computes the answer to a message; false means stay silent.
func (l *Listener) Reply(ctx context.Context, msg *slackevents.MessageEvent) (string, bool) {
	// skip bot messages and other channels
	if msg.BotID != "" || msg.Channel != l.Channel || !strings.HasPrefix(msg.Text, "!") {
		return "", false
	}
	reply, err := l.Commands.Process(ctx, msg.Text)
	switch {
	case errors.Is(err, errUnknownCommand):
		return "Unknown command, try `!help`", true
	case err != nil:
		log.WithError(err).WithField("command", msg.Text).Error("Slack command failed")
		return "Something went wrong, please try again", true
	}
	return reply, reply != ""
}
