package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streamforge/channelctl/internal/admin"
	"github.com/streamforge/channelctl/internal/alert"
	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/mediaengine"
	"github.com/streamforge/channelctl/internal/notify"
	"github.com/streamforge/channelctl/internal/provisioner"
	"github.com/streamforge/channelctl/internal/repository/memrepository"
	"github.com/streamforge/channelctl/internal/worker"
)

type fakeEngine struct {
	err         error
	result      channel.ProvisioningResult
	deleteCalls int
	rotateCalls int
}

func (f *fakeEngine) CreateChannel(context.Context, channel.ProvisioningRequest) (channel.ProvisioningResult, error) {
	if f.err != nil {
		return channel.ProvisioningResult{}, f.err
	}
	return f.result, nil
}
func (f *fakeEngine) DeleteChannel(context.Context, string) error { f.deleteCalls++; return nil }
func (f *fakeEngine) RotateIngestKey(context.Context, string) error {
	f.rotateCalls++
	return nil
}

type discardNotifier struct{}

func (discardNotifier) PublishPlaybackReady(context.Context, notify.PlaybackReadyEvent) error {
	return nil
}

type discardAlerts struct{}

func (discardAlerts) Record(context.Context, alert.Failure) error {
	return nil
}

func discardLogger() logging.Logger {
	return logging.New(logging.LevelFromString("ERROR"), io.Discard)
}

func testProvisionerOptions() provisioner.Options {
	return provisioner.Options{
		ReelsPreset:         "low|640x360|800",
		SeriesPreset:        "low|960x540|1200",
		ReelsIngestPool:     "ingest-reels",
		SeriesIngestPool:    "ingest-series",
		ReelsEgressPool:     "egress-reels",
		SeriesEgressPool:    "egress-series",
		ManifestBucket:      "media-manifests",
		CDNBaseURL:          "https://cdn.example.com/",
		SigningKeyID:        "key-1",
		MaxProvisionRetries: 1,
	}
}

func encodeEvent(t *testing.T, contentID, checksum string) string {
	t.Helper()
	event := events.UploadCompletedEvent{
		EventID:    "e1",
		EventType:  events.UploadedEventType,
		Version:    "1",
		OccurredAt: "2026-01-01T00:00:00Z",
		Data: events.Payload{
			ContentID:       contentID,
			TenantID:        "t",
			ContentType:     events.ContentTypeReel,
			SourceURI:       "gs://b/a",
			Checksum:        checksum,
			DurationSeconds: 10,
			IngestRegion:    "us",
		},
	}
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestUploadEventsHandlerAcksOnSuccess(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{result: channel.ProvisioningResult{ChannelID: "ch-1", OriginEndpoint: "origin-1"}}
	tracker := mediaengine.NewFailureTracker(10, time.Minute)
	prov, err := provisioner.New(repo, engine, tracker, discardLogger(), nil, testProvisionerOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := worker.New(prov, discardNotifier{}, discardAlerts{}, discardLogger(), nil, worker.Options{MaxDeliveryAttempts: 3, AckDeadlineSeconds: 10})

	handler := newUploadEventsHandler(w, discardLogger())

	body := `{"message":{"data":"` + encodeEvent(t, "c-1", "sum-1") + `","messageId":"m-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/internal/upload-events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUploadEventsHandlerRejectsMalformedBody(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{}
	tracker := mediaengine.NewFailureTracker(10, time.Minute)
	prov, _ := provisioner.New(repo, engine, tracker, discardLogger(), nil, testProvisionerOptions())
	w := worker.New(prov, discardNotifier{}, discardAlerts{}, discardLogger(), nil, worker.Options{})

	handler := newUploadEventsHandler(w, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/internal/upload-events", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadEventsHandlerNacksOnFailure(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{err: errors.New("engine down")}
	tracker := mediaengine.NewFailureTracker(10, time.Minute)
	prov, _ := provisioner.New(repo, engine, tracker, discardLogger(), nil, testProvisionerOptions())
	w := worker.New(prov, discardNotifier{}, discardAlerts{}, discardLogger(), nil, worker.Options{MaxDeliveryAttempts: 5, AckDeadlineSeconds: 30})

	handler := newUploadEventsHandler(w, discardLogger())

	body := `{"message":{"data":"` + encodeEvent(t, "c-2", "sum-2") + `","messageId":"m-2","attributes":{"deliveryAttempt":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/internal/upload-events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
}

func TestAdminHandlerRetireAndGet(t *testing.T) {
	repo := memrepository.New()
	_ = repo.Upsert(context.Background(), channel.Metadata{ContentID: "c-3", Status: channel.StatusReady})
	engine := &fakeEngine{}
	facade := admin.New(repo, engine, nil)
	handler := newAdminHandler(facade, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/internal/channels/c-3/retire", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retire status = %d, want 200", rec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/internal/channels/c-3", nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getRec.Code)
	}
	var got channel.Metadata
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Status != channel.StatusRetired {
		t.Fatalf("status = %q, want retired", got.Status)
	}
}

func TestAdminHandlerUnknownActionNotFound(t *testing.T) {
	repo := memrepository.New()
	engine := &fakeEngine{}
	facade := admin.New(repo, engine, nil)
	handler := newAdminHandler(facade, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/internal/channels/c-4/frobnicate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

