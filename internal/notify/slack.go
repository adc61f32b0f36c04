package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts events to a Slack channel as attachment messages.
type Slack struct {
	client    slackClient
	channelID string
}

// NewSlack creates a Slack notifier for the given bot token and channel.
func NewSlack(botToken, channelID string) *Slack {
	return &Slack{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, evt Event) error {
	attachment := slackapi.Attachment{
		Title: evt.Title,
		Text:  evt.Body,
		Color: severityColor(evt.Severity),
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", s.channelID, err)
	}
	return nil
}
