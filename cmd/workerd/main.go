// Command workerd is the channel-provisioning control plane process:
// it wires the Upload Event Worker, Channel Provisioner, and
// Reconciliation Loop over their collaborators and serves /healthz and
// /metrics, following the teacher's parseArgs + slog + http.ServeMux
// process shape.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/streamforge/channelctl/internal/admin"
	"github.com/streamforge/channelctl/internal/alert/slackalert"
	"github.com/streamforge/channelctl/internal/audit"
	"github.com/streamforge/channelctl/internal/config"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/mediaengine"
	"github.com/streamforge/channelctl/internal/metrics"
	"github.com/streamforge/channelctl/internal/notify/redisnotify"
	"github.com/streamforge/channelctl/internal/provisioner"
	"github.com/streamforge/channelctl/internal/reconciler"
	"github.com/streamforge/channelctl/internal/repository/pgrepository"
	"github.com/streamforge/channelctl/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("workerd: failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(logging.LevelFromString(cfg.LogLevel), os.Stderr)
	log.Info("workerd: starting", "listenAddr", cfg.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("workerd: failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	repo := pgrepository.New(pool)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	notifier := redisnotify.New(rdb, cfg.NotifyChannel)

	alerts := slackalert.New(cfg.SlackWebhookURL, log.With("component", "alerting"))

	engineClient := mediaengine.NewHTTPClient(cfg.MediaEngineBaseURL, nil, log.With("component", "mediaengine"))
	tracker := mediaengine.NewFailureTracker(3, 60*time.Second)

	prov, err := provisioner.New(repo, engineClient, tracker, log.With("component", "provisioner"), nil, provisioner.Options{
		ReelsPreset:         cfg.ReelsPreset,
		SeriesPreset:        cfg.SeriesPreset,
		ReelsIngestPool:     cfg.ReelsIngestPool,
		SeriesIngestPool:    cfg.SeriesIngestPool,
		ReelsEgressPool:     cfg.ReelsEgressPool,
		SeriesEgressPool:    cfg.SeriesEgressPool,
		ManifestBucket:      cfg.ManifestBucket,
		CDNBaseURL:          cfg.CDNBaseURL,
		SigningKeyID:        cfg.SigningKeyID,
		DryRun:              cfg.DryRun,
		MaxProvisionRetries: cfg.MaxProvisionRetries,
	})
	if err != nil {
		log.Error("workerd: failed to build provisioner", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	prov.SetMetrics(m)

	auditRecorder, err := audit.New(cfg.AuditLogDir, time.Now())
	if err != nil {
		log.Error("workerd: failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer auditRecorder.Close()
	prov.SetAudit(auditRecorder)

	uploadWorker := worker.New(prov, notifier, alerts, log.With("component", "worker"), nil, worker.Options{
		MaxDeliveryAttempts: cfg.MaxDeliveryAttempts,
		AckDeadlineSeconds:  cfg.AckDeadlineSeconds,
		ManifestTTL:         cfg.ManifestTTL(),
	})
	uploadWorker.SetMetrics(m)

	rec := reconciler.New(repo, prov, alerts, log.With("component", "reconciler"), nil, reconciler.Options{
		Limit:           cfg.ReconcileLimit,
		DefaultTenantID: cfg.ReconcileDefaultTenantID,
		DefaultRegion:   cfg.ReconcileDefaultRegion,
	})
	rec.SetMetrics(m)
	go rec.Run(ctx, time.Duration(cfg.ReconcileIntervalSeconds)*time.Second)

	adminFacade := admin.New(repo, engineClient, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// The concrete pub/sub subscription transport is external (spec Non-goal);
	// this push endpoint is the one concrete binding a push-style subscriber
	// (e.g. a GCP Pub/Sub push subscription) can target.
	mux.Handle("/internal/upload-events", newUploadEventsHandler(uploadWorker, log.With("component", "http")))
	mux.Handle("/internal/channels/", newAdminHandler(adminFacade, log.With("component", "admin")))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Info("workerd: serving health and metrics", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("workerd: http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("workerd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("workerd: graceful shutdown failed", "error", err)
	}
}
