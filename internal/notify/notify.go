// Package notify defines the Notification Publisher contract (spec §4.1
// step 4, §6 output wire format): emit a playback-ready event once a
// channel reaches "ready".
package notify

import (
	"context"
	"time"

	"github.com/streamforge/channelctl/internal/channel"
)

// PlaybackReadyEvent is the output wire format of spec §6: {metadata,
// manifestUrl, expiresAt}.
type PlaybackReadyEvent struct {
	Metadata    channel.Metadata `json:"metadata"`
	ManifestURL string           `json:"manifestUrl"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// Publisher emits playback-ready events to downstream consumers.
type Publisher interface {
	PublishPlaybackReady(ctx context.Context, event PlaybackReadyEvent) error
}
