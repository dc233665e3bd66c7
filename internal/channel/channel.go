// Package channel holds the provisioning request/result/metadata types
// (spec §3) and the pure functions that derive manifest paths, cache keys,
// and playback URLs from them.
package channel

import (
	"crypto/sha1" //nolint:gosec // cache key convention is a content-addressing digest, not a security boundary.
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/streamforge/channelctl/internal/events"
)

// Status enumerates the lifecycle states of a ChannelMetadata record
// (spec §3 invariants, §4.2 state machine).
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
	StatusRetired      Status = "retired"
)

// PendingSentinel is the placeholder value for channelId/originEndpoint
// before the media engine has assigned real ones. Encoded here as a plain
// string sentinel (rather than a tagged Pending|Assigned sum type) because
// Go has no native sum types; ChannelMetadata.IsAssigned below centralizes
// the check so callers never compare against the literal by hand.
const PendingSentinel = "pending"

// ProvisioningRequest is the internal request derived from an upload event
// and handed to the Media Engine Client (spec §3).
type ProvisioningRequest struct {
	ContentID           string
	Classification      events.ContentType
	SourceURI           string
	IngestPool          string
	EgressPool          string
	AbrLadder           string // re-serialized preset text, opaque to the engine
	OutputBucket        string
	ManifestPath        string
	CacheKey            string
	DRM                 *events.DRM
	AvailabilityWindow  *events.AvailabilityWindow
	GeoRestrictions     *events.GeoRestrictions
	Metadata            map[string]string
}

// ProvisioningResult is what the Media Engine Client returns on success
// (spec §3, §6).
type ProvisioningResult struct {
	ChannelID       string
	ManifestPath    string
	OriginEndpoint  string
	PlaybackBaseURL string
	ProfileHash     string
}

// Metadata is the persistent, contentId-keyed record (spec §3).
type Metadata struct {
	ContentID          string
	ChannelID          string
	Classification     events.ContentType
	ManifestPath       string
	PlaybackURL        string
	OriginEndpoint     string
	CacheKey           string
	Checksum           string
	Status             Status
	Retries            int
	SourceAssetURI     string
	LastProvisionedAt  string // ISO-8601
	DRM                *events.DRM
	IngestRegion       string
	AvailabilityWindow *events.AvailabilityWindow
	GeoRestrictions    *events.GeoRestrictions
}

// IsAssigned reports whether the record has moved past the pending
// sentinel for both channelId and originEndpoint. The invariant "status
// ready implies assigned" is checked wherever a record transitions to
// ready (see internal/provisioner).
func (m Metadata) IsAssigned() bool {
	return m.ChannelID != PendingSentinel && m.ChannelID != "" &&
		m.OriginEndpoint != PendingSentinel && m.OriginEndpoint != ""
}

// ManifestPath returns the conventional manifest path for a content id
// (spec §3, §6): "manifests/{contentId}/master.m3u8".
func ManifestPath(contentID string) string {
	return fmt.Sprintf("manifests/%s/master.m3u8", contentID)
}

// CacheKey returns the lowercase hex SHA-1 of contentId || ":" || checksum
// (spec §3, §6). It is a pure function of its inputs: a checksum change
// always yields a new cache key, and the same pair always yields the same
// key.
func CacheKey(contentID, checksum string) string {
	sum := sha1.Sum([]byte(contentID + ":" + checksum)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// PlaybackURL resolves manifestPath against cdnBaseURL per RFC 3986
// reference resolution (spec §6 Playback URL convention).
func PlaybackURL(cdnBaseURL, manifestPath string) (string, error) {
	base, err := url.Parse(cdnBaseURL)
	if err != nil {
		return "", fmt.Errorf("channel: invalid cdnBaseUrl %q: %w", cdnBaseURL, err)
	}
	ref, err := url.Parse(manifestPath)
	if err != nil {
		return "", fmt.Errorf("channel: invalid manifestPath %q: %w", manifestPath, err)
	}
	return base.ResolveReference(ref).String(), nil
}
