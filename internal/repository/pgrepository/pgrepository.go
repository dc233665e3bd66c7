// Package pgrepository implements repository.Repository against
// PostgreSQL via pgx/v5, grounded on the pgxpool query/scan idiom used by
// the pack's media-metadata persistence layer (see DESIGN.md). Channel
// metadata is stored as one row per contentId with a JSON column for the
// optional nested fields (drm, availabilityWindow, geoRestrictions) so the
// schema doesn't need a migration every time the engine adds an optional
// annotation.
package pgrepository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/events"
	"github.com/streamforge/channelctl/internal/repository"
)

// Repository implements repository.Repository backed by a pgxpool.Pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. Connection lifecycle (Connect,
// Close) is the caller's responsibility, matching the pack's convention of
// handing pre-built pools to repositories instead of owning a DSN.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type optionalFields struct {
	DRM                 *events.DRM                `json:"drm,omitempty"`
	AvailabilityWindow  *events.AvailabilityWindow `json:"availabilityWindow,omitempty"`
	GeoRestrictions     *events.GeoRestrictions    `json:"geoRestrictions,omitempty"`
}

const selectColumns = `
	content_id, channel_id, classification, manifest_path, playback_url,
	origin_endpoint, cache_key, checksum, status, retries, source_asset_uri,
	last_provisioned_at, ingest_region, optional_fields`

func (r *Repository) FindByContentID(ctx context.Context, contentID string) (channel.Metadata, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM channel_metadata WHERE content_id = $1`, contentID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return channel.Metadata{}, repository.ErrNotFound
		}
		return channel.Metadata{}, fmt.Errorf("pgrepository: find %q: %w", contentID, err)
	}
	return rec, nil
}

func (r *Repository) Upsert(ctx context.Context, record channel.Metadata) error {
	opt := optionalFields{
		DRM:                record.DRM,
		AvailabilityWindow: record.AvailabilityWindow,
		GeoRestrictions:    record.GeoRestrictions,
	}
	optJSON, err := json.Marshal(opt)
	if err != nil {
		return fmt.Errorf("pgrepository: marshal optional fields for %q: %w", record.ContentID, err)
	}

	const query = `
		INSERT INTO channel_metadata (
			content_id, channel_id, classification, manifest_path, playback_url,
			origin_endpoint, cache_key, checksum, status, retries, source_asset_uri,
			last_provisioned_at, ingest_region, optional_fields
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (content_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			classification = EXCLUDED.classification,
			manifest_path = EXCLUDED.manifest_path,
			playback_url = EXCLUDED.playback_url,
			origin_endpoint = EXCLUDED.origin_endpoint,
			cache_key = EXCLUDED.cache_key,
			checksum = EXCLUDED.checksum,
			status = EXCLUDED.status,
			retries = EXCLUDED.retries,
			source_asset_uri = EXCLUDED.source_asset_uri,
			last_provisioned_at = EXCLUDED.last_provisioned_at,
			ingest_region = EXCLUDED.ingest_region,
			optional_fields = EXCLUDED.optional_fields`

	if _, err := r.pool.Exec(ctx, query,
		record.ContentID, record.ChannelID, record.Classification, record.ManifestPath, record.PlaybackURL,
		record.OriginEndpoint, record.CacheKey, record.Checksum, record.Status, record.Retries, record.SourceAssetURI,
		record.LastProvisionedAt, record.IngestRegion, optJSON,
	); err != nil {
		return fmt.Errorf("pgrepository: upsert %q: %w", record.ContentID, err)
	}
	return nil
}

func (r *Repository) ListFailed(ctx context.Context, limit int) ([]channel.Metadata, error) {
	const query = `
		SELECT ` + selectColumns + `
		FROM channel_metadata
		WHERE status = 'failed'
		ORDER BY last_provisioned_at ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgrepository: list failed: %w", err)
	}
	defer rows.Close()

	var records []channel.Metadata
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("pgrepository: scan failed record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgrepository: iterate failed records: %w", err)
	}
	return records, nil
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which implement
// Scan with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (channel.Metadata, error) {
	var rec channel.Metadata
	var optJSON []byte

	if err := row.Scan(
		&rec.ContentID, &rec.ChannelID, &rec.Classification, &rec.ManifestPath, &rec.PlaybackURL,
		&rec.OriginEndpoint, &rec.CacheKey, &rec.Checksum, &rec.Status, &rec.Retries, &rec.SourceAssetURI,
		&rec.LastProvisionedAt, &rec.IngestRegion, &optJSON,
	); err != nil {
		return channel.Metadata{}, err
	}

	if len(optJSON) > 0 {
		var opt optionalFields
		if err := json.Unmarshal(optJSON, &opt); err != nil {
			return channel.Metadata{}, fmt.Errorf("unmarshal optional fields: %w", err)
		}
		rec.DRM = opt.DRM
		rec.AvailabilityWindow = opt.AvailabilityWindow
		rec.GeoRestrictions = opt.GeoRestrictions
	}

	return rec, nil
}
