// Package worker implements the Upload Event Worker (spec §4.1): decode,
// delegate to the Provisioner, notify, and decide ack/nack. Grounded on the
// pack's MediaWorker struct shape (collaborators + logger as injected
// fields, no package-level globals).
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/streamforge/channelctl/internal/alert"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/metrics"
	"github.com/streamforge/channelctl/internal/notify"
	"github.com/streamforge/channelctl/internal/provisioner"
)

// Action is the worker's verdict on a message.
type Action string

const (
	ActionAck  Action = "ack"
	ActionNack Action = "nack"
)

// Result is handleMessage's return value (spec §4.1 Contract).
type Result struct {
	Action         Action
	RetryInSeconds int
}

// Message is a pub/sub envelope (spec §4.1 Contract). DeliveryAttempt is
// 1-based; zero means "absent" and is treated as 1.
type Message struct {
	Data            string
	MessageID       string
	PublishTime     time.Time
	DeliveryAttempt int
}

func (m Message) attempt() int {
	if m.DeliveryAttempt <= 0 {
		return 1
	}
	return m.DeliveryAttempt
}

// Options configures poison-message policy and manifest TTL stamping.
type Options struct {
	MaxDeliveryAttempts int // default 5
	AckDeadlineSeconds  int
	ManifestTTL         time.Duration
}

// Worker decodes upload events, delegates provisioning, publishes
// playback-ready notifications, and decides ack/nack.
type Worker struct {
	provisioner *provisioner.Provisioner
	notifier    notify.Publisher
	alerts      alert.Sink
	log         logging.Logger
	clock       func() time.Time
	opts        Options
	metrics     *metrics.Metrics
}

// New builds a Worker over its collaborators.
func New(p *provisioner.Provisioner, notifier notify.Publisher, alerts alert.Sink, log logging.Logger, clock func() time.Time, opts Options) *Worker {
	if clock == nil {
		clock = time.Now
	}
	if opts.MaxDeliveryAttempts <= 0 {
		opts.MaxDeliveryAttempts = 5
	}
	return &Worker{provisioner: p, notifier: notifier, alerts: alerts, log: log, clock: clock, opts: opts}
}

// SetMetrics attaches a metrics sink the worker records ack/nack/poison
// counts against. Metrics are optional: a Worker with none set records
// nothing.
func (w *Worker) SetMetrics(m *metrics.Metrics) {
	w.metrics = m
}

// HandleMessage implements the Worker's single operation (spec §4.1).
func (w *Worker) HandleMessage(ctx context.Context, msg Message) Result {
	contentID, stage, err := w.process(ctx, msg)
	if err == nil {
		if w.metrics != nil {
			w.metrics.MessagesHandled.WithLabelValues("ack").Inc()
		}
		return Result{Action: ActionAck}
	}

	if contentID == "" {
		contentID = "unknown"
	}

	if alertErr := w.alerts.Record(ctx, alert.Failure{ContentID: contentID, Stage: stage, Err: err}); alertErr != nil {
		// Alerting errors are logged and swallowed, never promoted to a
		// handler failure (spec §7 error taxonomy, item 5).
		w.log.Warn("worker: alerting sink failed", "contentId", contentID, "error", alertErr)
	}

	attempt := msg.attempt()
	if attempt >= w.opts.MaxDeliveryAttempts {
		w.log.Error("worker: poison message, dropping", "contentId", contentID, "messageId", msg.MessageID, "attempt", attempt, "error", err)
		if w.metrics != nil {
			w.metrics.MessagesHandled.WithLabelValues("ack").Inc()
			w.metrics.PoisonMessages.Inc()
		}
		return Result{Action: ActionAck}
	}

	w.log.Warn("worker: handling failed, requesting redelivery", "contentId", contentID, "messageId", msg.MessageID, "attempt", attempt, "error", err)
	if w.metrics != nil {
		w.metrics.MessagesHandled.WithLabelValues("nack").Inc()
	}
	return Result{Action: ActionNack, RetryInSeconds: w.opts.AckDeadlineSeconds}
}

// process runs steps 1-4 of spec §4.1 and returns the best-known contentId
// for error reporting even when decode fails before a contentId is known,
// together with the alert stage ("decode", "provision" or "notify") that
// failed.
func (w *Worker) process(ctx context.Context, msg Message) (string, string, error) {
	event, err := events.DecodeBase64JSON(msg.Data)
	if err != nil {
		return "", "decode", fmt.Errorf("worker: decode message %q: %w", msg.MessageID, err)
	}
	contentID := event.Data.ContentID

	metadata, err := w.provisioner.ProvisionFromUpload(ctx, event)
	if err != nil {
		return contentID, "provision", fmt.Errorf("worker: provision %q: %w", contentID, err)
	}

	expiresAt := w.clock().UTC().Add(w.opts.ManifestTTL)
	notification := notify.PlaybackReadyEvent{
		Metadata:    metadata,
		ManifestURL: metadata.PlaybackURL,
		ExpiresAt:   expiresAt,
	}
	if err := w.notifier.PublishPlaybackReady(ctx, notification); err != nil {
		return contentID, "notify", fmt.Errorf("worker: publish playback-ready for %q: %w", contentID, err)
	}

	return contentID, "", nil
}
