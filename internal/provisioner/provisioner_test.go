package provisioner

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/mediaengine"
	"github.com/streamforge/channelctl/internal/repository/memrepository"
)

type fakeEngine struct {
	createCalls int
	err         error
	result      channel.ProvisioningResult
}

func (f *fakeEngine) CreateChannel(_ context.Context, _ channel.ProvisioningRequest) (channel.ProvisioningResult, error) {
	f.createCalls++
	if f.err != nil {
		return channel.ProvisioningResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) DeleteChannel(context.Context, string) error     { return nil }
func (f *fakeEngine) RotateIngestKey(context.Context, string) error   { return nil }

func testOptions() Options {
	return Options{
		ReelsPreset:         "low|640x360|800,high|1920x1080|5000",
		SeriesPreset:        "low|960x540|1200",
		ReelsIngestPool:     "ingest-reels",
		SeriesIngestPool:    "ingest-series",
		ReelsEgressPool:     "egress-reels",
		SeriesEgressPool:    "egress-series",
		ManifestBucket:      "media-manifests",
		CDNBaseURL:          "https://cdn.example.com/",
		SigningKeyID:        "key-1",
		DryRun:              false,
		MaxProvisionRetries: 2,
	}
}

func discardLogger() logging.Logger {
	return logging.New(logging.LevelFromString("ERROR"), io.Discard)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func uploadEvent(contentID, checksum string, contentType events.ContentType) events.UploadCompletedEvent {
	return events.UploadCompletedEvent{
		EventID:    "e1",
		EventType:  events.UploadedEventType,
		Version:    "1",
		OccurredAt: "2026-01-01T00:00:00Z",
		Data: events.Payload{
			ContentID:       contentID,
			TenantID:        "t",
			ContentType:     contentType,
			SourceURI:       "gs://b/a",
			Checksum:        checksum,
			DurationSeconds: 10,
			IngestRegion:    "us",
		},
	}
}

func TestProvisionFromUploadHappyPath(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{result: channel.ProvisioningResult{ChannelID: "ch1", OriginEndpoint: "origin.example.com"}}
	tracker := mediaengine.NewFailureTracker(3, time.Minute)

	p, err := New(repo, engine, tracker, discardLogger(), fixedClock(time.Unix(0, 0)), testOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.ProvisionFromUpload(context.Background(), uploadEvent("c1", "s1", events.ContentTypeReel))
	if err != nil {
		t.Fatalf("ProvisionFromUpload: %v", err)
	}

	if got.Status != channel.StatusReady {
		t.Errorf("status = %q, want ready", got.Status)
	}
	if got.ChannelID != "ch1" {
		t.Errorf("channelId = %q, want ch1", got.ChannelID)
	}
	if got.Retries != 0 {
		t.Errorf("retries = %d, want 0", got.Retries)
	}
	if engine.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", engine.createCalls)
	}
	if len(repo.Upserts) != 2 {
		t.Fatalf("upserts = %d, want 2 (provisioning, ready)", len(repo.Upserts))
	}
	if repo.Upserts[0].Status != channel.StatusProvisioning || repo.Upserts[0].Retries != 0 {
		t.Errorf("first upsert = %+v, want provisioning/retries=0", repo.Upserts[0])
	}
	if repo.Upserts[1].Status != channel.StatusReady {
		t.Errorf("second upsert = %+v, want ready", repo.Upserts[1])
	}
}

func TestProvisionFromUploadIdempotentReadySameChecksum(t *testing.T) {
	repo := memrepository.New()
	repo.Seed(channel.Metadata{ContentID: "c1", Checksum: "s1", Status: channel.StatusReady, ChannelID: "ch1", OriginEndpoint: "origin.example.com"})
	engine := &fakeEngine{}
	tracker := mediaengine.NewFailureTracker(3, time.Minute)

	p, err := New(repo, engine, tracker, discardLogger(), fixedClock(time.Unix(0, 0)), testOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.ProvisionFromUpload(context.Background(), uploadEvent("c1", "s1", events.ContentTypeReel))
	if err != nil {
		t.Fatalf("ProvisionFromUpload: %v", err)
	}

	if engine.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0 (idempotency gate should short-circuit)", engine.createCalls)
	}
	if len(repo.Upserts) != 0 {
		t.Errorf("upserts = %d, want 0", len(repo.Upserts))
	}
	if got.ChannelID != "ch1" {
		t.Errorf("channelId = %q, want the unchanged existing record's ch1", got.ChannelID)
	}
}

func TestProvisionFromUploadChecksumChangeForcesReprovision(t *testing.T) {
	repo := memrepository.New()
	repo.Seed(channel.Metadata{ContentID: "c1", Checksum: "s1", Status: channel.StatusReady, ChannelID: "ch1", OriginEndpoint: "origin.example.com", Retries: 0})
	engine := &fakeEngine{result: channel.ProvisioningResult{ChannelID: "ch2", OriginEndpoint: "origin2.example.com"}}
	tracker := mediaengine.NewFailureTracker(3, time.Minute)

	p, err := New(repo, engine, tracker, discardLogger(), fixedClock(time.Unix(0, 0)), testOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.ProvisionFromUpload(context.Background(), uploadEvent("c1", "s2", events.ContentTypeReel))
	if err != nil {
		t.Fatalf("ProvisionFromUpload: %v", err)
	}

	if engine.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", engine.createCalls)
	}
	if got.Retries != 1 {
		t.Errorf("retries = %d, want 1", got.Retries)
	}
	if got.CacheKey == channel.CacheKey("c1", "s1") {
		t.Error("cacheKey should differ from the previous checksum's cacheKey")
	}
}

func TestProvisionFromUploadEngineFailureExhaustsRetriesAndPersistsFailed(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{err: mediaengine.Transient(errors.New("engine unreachable"))}
	tracker := mediaengine.NewFailureTracker(10, time.Minute)

	opts := testOptions()
	opts.MaxProvisionRetries = 2

	p, err := New(repo, engine, tracker, discardLogger(), fixedClock(time.Unix(0, 0)), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.ProvisionFromUpload(context.Background(), uploadEvent("c1", "s1", events.ContentTypeReel))
	if err == nil {
		t.Fatal("expected an error once the retry envelope is exhausted")
	}

	last := repo.Upserts[len(repo.Upserts)-1]
	if last.Status != channel.StatusFailed {
		t.Errorf("final persisted status = %q, want failed", last.Status)
	}
	if last.Retries != 1 {
		t.Errorf("retries = %d, want 1 (pre.Retries + 1 on the terminal-failure record)", last.Retries)
	}
	if engine.createCalls != 3 { // 1 initial + 2 retries
		t.Errorf("createCalls = %d, want 3", engine.createCalls)
	}
}

func TestCacheKeyPurity(t *testing.T) {
	k1 := channel.CacheKey("c1", "s1")
	k2 := channel.CacheKey("c1", "s1")
	if k1 != k2 {
		t.Fatal("cacheKey must be stable across calls")
	}
	if k1 == channel.CacheKey("c1", "s2") {
		t.Fatal("cacheKey must change with checksum")
	}
}
