// Package reconciler implements the Reconciliation Loop (spec §4.4):
// periodic re-drive of "failed" records back through the Provisioner.
package reconciler

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/streamforge/channelctl/internal/alert"
	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/metrics"
	"github.com/streamforge/channelctl/internal/provisioner"
	"github.com/streamforge/channelctl/internal/repository"
)

// Options configures the defaults applied when a stored record is missing
// fields the synthesized replay event needs (spec §4.4, §9 open question:
// these defaults are environment-specific and configurable here rather
// than hardcoded).
type Options struct {
	Limit            int
	DefaultTenantID  string
	DefaultRegion    string
}

// Reconciler re-drives failed records through the Provisioner.
type Reconciler struct {
	repo        repository.Repository
	provisioner *provisioner.Provisioner
	alerts      alert.Sink
	log         logging.Logger
	clock       func() time.Time
	opts        Options
	metrics     *metrics.Metrics
}

// New builds a Reconciler over its collaborators.
func New(repo repository.Repository, p *provisioner.Provisioner, alerts alert.Sink, log logging.Logger, clock func() time.Time, opts Options) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return &Reconciler{repo: repo, provisioner: p, alerts: alerts, log: log, clock: clock, opts: opts}
}

// SetMetrics attaches a metrics sink the reconciler records sweep and
// replay counts against. Metrics are optional.
func (r *Reconciler) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// ReconcileFailed is the Reconciler's single operation (spec §4.4). Each
// record is processed independently: an error from one does not abort the
// sweep.
func (r *Reconciler) ReconcileFailed(ctx context.Context) (processed int, err error) {
	if r.metrics != nil {
		r.metrics.ReconcileSweeps.Inc()
	}

	records, err := r.repo.ListFailed(ctx, r.opts.Limit)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if lastAttempt, parseErr := time.Parse(time.RFC3339, record.LastProvisionedAt); parseErr == nil {
			r.log.Info("reconciler: replaying failed record", "contentId", record.ContentID, "lastAttempt", humanize.Time(lastAttempt))
		}

		event := r.synthesizeEvent(record)
		if _, provisionErr := r.provisioner.ProvisionFromUpload(ctx, event); provisionErr != nil {
			r.log.Warn("reconciler: replay failed", "contentId", record.ContentID, "error", provisionErr)
			if alertErr := r.alerts.Record(ctx, alert.Failure{
				ContentID: record.ContentID,
				Stage:     "reconcile",
				Err:       provisionErr,
			}); alertErr != nil {
				r.log.Warn("reconciler: alerting sink failed", "contentId", record.ContentID, "error", alertErr)
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.ReconcileReplayed.Inc()
		}
		processed++
	}

	return processed, nil
}

// synthesizeEvent reconstructs an UploadCompletedEvent from a stored
// failed record (spec §4.4): eventId = "reconcile-" + contentId,
// eventType = media.uploaded, occurredAt = now, with configured defaults
// filling in fields the stored record lacks.
func (r *Reconciler) synthesizeEvent(record channel.Metadata) events.UploadCompletedEvent {
	tenantID := r.opts.DefaultTenantID
	ingestRegion := record.IngestRegion
	if ingestRegion == "" {
		ingestRegion = r.opts.DefaultRegion
	}
	durationSeconds := 1

	return events.UploadCompletedEvent{
		EventID:    "reconcile-" + record.ContentID,
		EventType:  events.UploadedEventType,
		Version:    "1",
		OccurredAt: r.clock().UTC().Format(time.RFC3339),
		Data: events.Payload{
			ContentID:          record.ContentID,
			TenantID:           tenantID,
			ContentType:        record.Classification,
			SourceURI:          record.SourceAssetURI,
			Checksum:           record.Checksum,
			DurationSeconds:    durationSeconds,
			IngestRegion:       ingestRegion,
			DRM:                record.DRM,
			AvailabilityWindow: record.AvailabilityWindow,
			GeoRestrictions:    record.GeoRestrictions,
		},
	}
}

// Run starts a ticker-driven loop invoking ReconcileFailed at interval,
// grounded on the pack's MediaWorker run() ticker loop. It blocks until ctx
// is canceled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("reconciler: starting", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler: stopping")
			return
		case <-ticker.C:
			processed, err := r.ReconcileFailed(ctx)
			if err != nil {
				r.log.Error("reconciler: sweep failed", "error", err)
				continue
			}
			r.log.Info("reconciler: sweep complete", "processed", processed)
		}
	}
}
