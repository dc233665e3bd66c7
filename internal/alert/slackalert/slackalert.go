// Package slackalert implements alert.Sink over a Slack incoming webhook,
// using slack-go/slack's webhook helper the way the rest of the pack's
// dependency stack uses it (no in-pack caller imports it directly; built
// directly against the package's documented WebhookMessage/PostWebhook
// API — see DESIGN.md).
package slackalert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/streamforge/channelctl/internal/alert"
	"github.com/streamforge/channelctl/internal/logging"
)

// Sink posts one Slack message per recorded failure.
type Sink struct {
	webhookURL string
	log        logging.Logger
}

// New builds a Sink against a Slack incoming-webhook URL.
func New(webhookURL string, log logging.Logger) *Sink {
	return &Sink{webhookURL: webhookURL, log: log}
}

func (s *Sink) Record(_ context.Context, failure alert.Failure) error {
	if s.webhookURL == "" {
		s.log.Warn("slackalert: no webhook configured, dropping alert",
			"contentId", failure.ContentID, "stage", failure.Stage, "error", failure.Err)
		return nil
	}

	text := fmt.Sprintf(":rotating_light: provisioning failure — contentId=%s stage=%s error=%v",
		failure.ContentID, failure.Stage, failure.Err)

	msg := slack.WebhookMessage{
		Text: text,
		Attachments: []slack.Attachment{
			{
				Color: "danger",
				Fields: []slack.AttachmentField{
					{Title: "contentId", Value: failure.ContentID, Short: true},
					{Title: "stage", Value: failure.Stage, Short: true},
				},
			},
		},
	}

	if err := slack.PostWebhook(s.webhookURL, &msg); err != nil {
		return fmt.Errorf("slackalert: post webhook: %w", err)
	}
	return nil
}
