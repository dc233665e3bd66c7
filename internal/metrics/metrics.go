// Package metrics exposes Prometheus counters and histograms for the
// provisioning pipeline, built against client_golang's promauto registry
// helpers per the library's documented API (no in-pack caller exercises
// client_golang beyond label construction — see DESIGN.md).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/histogram the pipeline emits.
type Metrics struct {
	MessagesHandled   *prometheus.CounterVec
	ProvisionDuration *prometheus.HistogramVec
	EngineRetries     prometheus.Counter
	PoisonMessages    prometheus.Counter
	ReconcileSweeps   prometheus.Counter
	ReconcileReplayed prometheus.Counter
}

// New registers and returns the pipeline's metrics against reg. Passing
// prometheus.NewRegistry() in tests keeps each test's metrics isolated
// from the process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "channelctl",
			Subsystem: "worker",
			Name:      "messages_handled_total",
			Help:      "Upload events handled by the worker, labeled by ack/nack action.",
		}, []string{"action"}),
		ProvisionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "channelctl",
			Subsystem: "provisioner",
			Name:      "provision_duration_seconds",
			Help:      "Time spent in ProvisionFromUpload, labeled by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		EngineRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "channelctl",
			Subsystem: "mediaengine",
			Name:      "create_channel_retries_total",
			Help:      "Retry attempts against the media engine's createChannel operation.",
		}),
		PoisonMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "channelctl",
			Subsystem: "worker",
			Name:      "poison_messages_total",
			Help:      "Messages dropped after exceeding maxDeliveryAttempts.",
		}),
		ReconcileSweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "channelctl",
			Subsystem: "reconciler",
			Name:      "sweeps_total",
			Help:      "Reconciliation sweeps run.",
		}),
		ReconcileReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "channelctl",
			Subsystem: "reconciler",
			Name:      "records_replayed_total",
			Help:      "Failed records successfully replayed to ready by the reconciliation loop.",
		}),
	}
}
