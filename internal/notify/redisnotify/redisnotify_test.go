package redisnotify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/notify"
)

func TestPublishPlaybackReadyPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sub := rdb.Subscribe(context.Background(), "playback-ready")
	t.Cleanup(func() { _ = sub.Close() })

	// Wait for the subscription to register with miniredis before publishing.
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := New(rdb, "playback-ready")

	event := notify.PlaybackReadyEvent{
		Metadata: channel.Metadata{
			ContentID: "c1",
			ChannelID: "ch1",
			Status:    channel.StatusReady,
		},
		ManifestURL: "https://cdn.example.com/manifests/c1/master.m3u8",
		ExpiresAt:   time.Unix(0, 0).UTC(),
	}

	if err := pub.PublishPlaybackReady(context.Background(), event); err != nil {
		t.Fatalf("PublishPlaybackReady: %v", err)
	}

	msg, err := sub.ReceiveMessage(context.Background())
	if err != nil {
		t.Fatalf("receive message: %v", err)
	}

	var got notify.PlaybackReadyEvent
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Metadata.ContentID != "c1" {
		t.Errorf("ContentID = %q, want c1", got.Metadata.ContentID)
	}
	if got.ManifestURL != event.ManifestURL {
		t.Errorf("ManifestURL = %q, want %q", got.ManifestURL, event.ManifestURL)
	}
}

func TestPublishPlaybackReadyErrorsOnClosedConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	_ = rdb.Close()

	pub := New(rdb, "playback-ready")
	err := pub.PublishPlaybackReady(context.Background(), notify.PlaybackReadyEvent{
		Metadata: channel.Metadata{ContentID: "c1"},
	})
	if err == nil {
		t.Fatal("expected an error publishing over a closed connection")
	}
}
