// Package redisnotify implements notify.Publisher over Redis Pub/Sub,
// grounded on the pack's redis/go-redis/v9 publish idiom.
package redisnotify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/streamforge/channelctl/internal/notify"
	"github.com/streamforge/channelctl/internal/telemetry"
)

// Publisher publishes playback-ready events as JSON to a single Redis
// channel.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

// New builds a Publisher over an already-connected redis.Client, publishing
// to channel.
func New(rdb *redis.Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) PublishPlaybackReady(ctx context.Context, event notify.PlaybackReadyEvent) error {
	ctx, span := telemetry.StartSpan(ctx, "redisnotify.PublishPlaybackReady")
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redisnotify: marshal playback-ready event for %q: %w", event.Metadata.ContentID, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redisnotify: publish to %q: %w", p.channel, err)
	}
	return nil
}
