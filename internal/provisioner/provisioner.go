// Package provisioner implements the Channel Provisioner (spec §4.2): an
// idempotency gate followed by a persistence/engine-call state machine.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"

	"github.com/streamforge/channelctl/internal/abr"
	"github.com/streamforge/channelctl/internal/audit"
	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/mediaengine"
	"github.com/streamforge/channelctl/internal/metrics"
	"github.com/streamforge/channelctl/internal/repository"
	"github.com/streamforge/channelctl/internal/telemetry"
)

// Clock abstracts time.Now so the state machine's timestamps are testable.
type Clock func() time.Time

// Options configures a Provisioner with the recognized options of spec §6
// that govern derivation and retry behavior.
type Options struct {
	ReelsPreset         string
	SeriesPreset        string
	ReelsIngestPool     string
	SeriesIngestPool    string
	ReelsEgressPool     string
	SeriesEgressPool    string
	ManifestBucket      string
	CDNBaseURL          string
	SigningKeyID        string
	DryRun              bool
	MaxProvisionRetries int
}

// Provisioner implements ProvisionFromUpload over a Repository and a
// mediaengine.Client.
type Provisioner struct {
	repo    repository.Repository
	engine  mediaengine.Client
	tracker *mediaengine.FailureTracker
	log     logging.Logger
	clock   Clock

	reelsLadder  string
	seriesLadder string
	opts         Options
	metrics      *metrics.Metrics
	audit        *audit.Recorder
}

// New builds a Provisioner, parsing the reel/series ABR presets once at
// construction (spec §4.2 Preset parsing — "parsed once at startup").
// Malformed presets are a configuration error and fail construction rather
// than surfacing per-event.
func New(repo repository.Repository, engine mediaengine.Client, tracker *mediaengine.FailureTracker, log logging.Logger, clock Clock, opts Options) (*Provisioner, error) {
	reelsLadder, err := abr.ParsePreset(opts.ReelsPreset)
	if err != nil {
		return nil, fmt.Errorf("provisioner: reelsPreset: %w", err)
	}
	seriesLadder, err := abr.ParsePreset(opts.SeriesPreset)
	if err != nil {
		return nil, fmt.Errorf("provisioner: seriesPreset: %w", err)
	}

	if clock == nil {
		clock = time.Now
	}

	return &Provisioner{
		repo:         repo,
		engine:       engine,
		tracker:      tracker,
		log:          log,
		clock:        clock,
		reelsLadder:  abr.String(reelsLadder),
		seriesLadder: abr.String(seriesLadder),
		opts:         opts,
	}, nil
}

// SetMetrics attaches a metrics sink the provisioner records retry counts
// and provision durations against. Metrics are optional.
func (p *Provisioner) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// SetAudit attaches an audit trail recorder. A nil Recorder is valid and
// simply records nothing.
func (p *Provisioner) SetAudit(a *audit.Recorder) {
	p.audit = a
}

const isoLayout = time.RFC3339

func (p *Provisioner) now() string {
	return p.clock().UTC().Format(isoLayout)
}

// ProvisionFromUpload is the Provisioner's single operation (spec §4.2).
func (p *Provisioner) ProvisionFromUpload(ctx context.Context, event events.UploadCompletedEvent) (result channel.Metadata, resultErr error) {
	ctx, span := telemetry.StartSpan(ctx, "provisioner.ProvisionFromUpload")
	defer span.End()

	data := event.Data
	contentID := data.ContentID
	span.SetAttributes(attribute.String("contentId", contentID))

	start := p.clock()
	outcome := "error"
	defer func() {
		if p.metrics != nil {
			p.metrics.ProvisionDuration.WithLabelValues(outcome).Observe(p.clock().Sub(start).Seconds())
		}
		p.audit.RecordProvision(p.clock(), contentID, outcome, p.clock().Sub(start), result.Retries, resultErr)
	}()

	existing, err := p.repo.FindByContentID(ctx, contentID)
	exists := true
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			exists = false
		} else {
			return channel.Metadata{}, fmt.Errorf("provisioner: lookup %q: %w", contentID, err)
		}
	}

	// Idempotency gate: a ready record with a matching checksum is returned
	// unchanged. A differing checksum means a re-upload and forces
	// re-provisioning.
	if exists && existing.Status == channel.StatusReady && existing.Checksum == data.Checksum {
		outcome = "idempotent"
		return existing, nil
	}

	req, pre := p.derive(data, existing, exists)

	if err := p.repo.Upsert(ctx, pre); err != nil {
		return channel.Metadata{}, fmt.Errorf("provisioner: persist provisioning record for %q: %w", contentID, err)
	}

	if ok, reason := p.tracker.CanAttempt(contentID); !ok {
		failedRecord := pre
		failedRecord.Status = channel.StatusFailed
		failedRecord.Retries = pre.Retries + 1
		failedRecord.LastProvisionedAt = p.now()
		if upsertErr := p.repo.Upsert(ctx, failedRecord); upsertErr != nil {
			p.log.Error("provisioner: failed to persist circuit-open record", "contentId", contentID, "error", upsertErr)
		}
		return channel.Metadata{}, fmt.Errorf("provisioner: %q: %s", contentID, reason)
	}

	p.tracker.RecordAttempt(contentID)

	var engineResult channel.ProvisioningResult
	onRetry := func() {}
	if p.metrics != nil {
		onRetry = p.metrics.EngineRetries.Inc
	}
	engineErr := retryEnvelope(ctx, p.log, p.opts.MaxProvisionRetries, onRetry, func() error {
		res, err := p.engine.CreateChannel(ctx, req)
		if err != nil {
			if !mediaengine.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		engineResult = res
		return nil
	})

	// A ready record must carry an assigned channelId and originEndpoint;
	// an engine reply without them is treated as a terminal failure.
	if engineErr == nil {
		assigned := channel.Metadata{ChannelID: engineResult.ChannelID, OriginEndpoint: engineResult.OriginEndpoint}
		if !assigned.IsAssigned() {
			engineErr = errors.New("engine returned no channelId or originEndpoint")
		}
	}

	if engineErr != nil {
		p.tracker.RecordFailure(contentID)

		failedRecord := pre
		failedRecord.Status = channel.StatusFailed
		failedRecord.Retries = pre.Retries + 1
		failedRecord.LastProvisionedAt = p.now()
		if upsertErr := p.repo.Upsert(ctx, failedRecord); upsertErr != nil {
			p.log.Error("provisioner: failed to persist failed record", "contentId", contentID, "error", upsertErr)
		}
		return channel.Metadata{}, fmt.Errorf("provisioner: createChannel %q: %w", contentID, engineErr)
	}

	p.tracker.RecordSuccess(contentID)

	finalRecord := pre
	finalRecord.Status = channel.StatusReady
	finalRecord.ChannelID = engineResult.ChannelID
	finalRecord.OriginEndpoint = engineResult.OriginEndpoint
	finalRecord.LastProvisionedAt = p.now()
	if engineResult.ManifestPath != "" {
		finalRecord.ManifestPath = engineResult.ManifestPath
	}
	if engineResult.PlaybackBaseURL != "" {
		playbackURL, err := channel.PlaybackURL(engineResult.PlaybackBaseURL, finalRecord.ManifestPath)
		if err != nil {
			return channel.Metadata{}, fmt.Errorf("provisioner: resolve overriding playbackUrl for %q: %w", contentID, err)
		}
		finalRecord.PlaybackURL = playbackURL
	}

	if err := p.repo.Upsert(ctx, finalRecord); err != nil {
		return channel.Metadata{}, fmt.Errorf("provisioner: persist ready record for %q: %w", contentID, err)
	}

	outcome = "ready"
	return finalRecord, nil
}

// derive computes the ChannelProvisioningRequest and the pre-persistence
// ChannelMetadata record for an upload event (spec §4.2 Derivation,
// Persistence protocol step 1).
func (p *Provisioner) derive(data events.Payload, existing channel.Metadata, exists bool) (channel.ProvisioningRequest, channel.Metadata) {
	var ladder, ingestPool, egressPool string
	if data.ContentType == events.ContentTypeReel {
		ladder, ingestPool, egressPool = p.reelsLadder, p.opts.ReelsIngestPool, p.opts.ReelsEgressPool
	} else {
		ladder, ingestPool, egressPool = p.seriesLadder, p.opts.SeriesIngestPool, p.opts.SeriesEgressPool
	}

	manifestPath := channel.ManifestPath(data.ContentID)
	cacheKey := channel.CacheKey(data.ContentID, data.Checksum)
	playbackURL, _ := channel.PlaybackURL(p.opts.CDNBaseURL, manifestPath)

	metadata := map[string]string{
		"tenantId":     data.TenantID,
		"checksum":     data.Checksum,
		"ingestRegion": data.IngestRegion,
		"durationSeconds": strconv.Itoa(data.DurationSeconds),
		"signingKeyId": p.opts.SigningKeyID,
		"dryRun":       strconv.FormatBool(p.opts.DryRun),
	}

	req := channel.ProvisioningRequest{
		ContentID:          data.ContentID,
		Classification:     data.ContentType,
		SourceURI:          data.SourceURI,
		IngestPool:         ingestPool,
		EgressPool:         egressPool,
		AbrLadder:          ladder,
		OutputBucket:       p.opts.ManifestBucket,
		ManifestPath:       manifestPath,
		CacheKey:           cacheKey,
		DRM:                data.DRM,
		AvailabilityWindow: data.AvailabilityWindow,
		GeoRestrictions:    data.GeoRestrictions,
		Metadata:           metadata,
	}

	channelID := channel.PendingSentinel
	originEndpoint := channel.PendingSentinel
	retries := 0
	if exists {
		channelID = existing.ChannelID
		originEndpoint = existing.OriginEndpoint
		retries = existing.Retries + 1
	}

	pre := channel.Metadata{
		ContentID:          data.ContentID,
		ChannelID:          channelID,
		Classification:     data.ContentType,
		ManifestPath:       manifestPath,
		PlaybackURL:        playbackURL,
		OriginEndpoint:     originEndpoint,
		CacheKey:           cacheKey,
		Checksum:           data.Checksum,
		Status:             channel.StatusProvisioning,
		Retries:            retries,
		SourceAssetURI:     data.SourceURI,
		LastProvisionedAt:  p.now(),
		DRM:                data.DRM,
		IngestRegion:       data.IngestRegion,
		AvailabilityWindow: data.AvailabilityWindow,
		GeoRestrictions:    data.GeoRestrictions,
	}

	return req, pre
}
