// Package events decodes and validates the upload-completed event that
// triggers the provisioning pipeline (spec §3, §6 input wire format).
package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// UploadedEventType is the only eventType the pipeline accepts.
const UploadedEventType = "media.uploaded"

// ContentType enumerates the classifications the provisioner recognizes.
type ContentType string

const (
	ContentTypeReel   ContentType = "reel"
	ContentTypeSeries ContentType = "series"
)

// DRM carries optional DRM hints forwarded opaquely to the media engine.
type DRM struct {
	KeyID         string `json:"keyId"`
	LicenseServer string `json:"licenseServer"`
}

// AvailabilityWindow bounds when a channel's manifest is servable.
type AvailabilityWindow struct {
	StartsAt string `json:"startsAt"`
	EndsAt   string `json:"endsAt"`
}

// GeoRestrictions carries optional allow/deny country lists.
type GeoRestrictions struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// Acknowledgement carries optional delivery hints; opaque to the core.
type Acknowledgement struct {
	RequestedAt string `json:"requestedAt,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// Payload is the `data` object of an UploadCompletedEvent.
type Payload struct {
	ContentID           string               `json:"contentId"`
	TenantID            string               `json:"tenantId"`
	ContentType         ContentType          `json:"contentType"`
	SourceURI           string               `json:"sourceUri"`
	Checksum            string               `json:"checksum"`
	DurationSeconds     int                  `json:"durationSeconds"`
	IngestRegion        string               `json:"ingestRegion"`
	DRM                 *DRM                 `json:"drm,omitempty"`
	AvailabilityWindow  *AvailabilityWindow  `json:"availabilityWindow,omitempty"`
	GeoRestrictions     *GeoRestrictions     `json:"geoRestrictions,omitempty"`
	Acknowledgement     *Acknowledgement     `json:"acknowledgement,omitempty"`
}

// UploadCompletedEvent is the decoded, validated wire event (spec §3).
// Unknown top-level fields are ignored by virtue of encoding/json's
// default decode behavior.
type UploadCompletedEvent struct {
	EventID    string  `json:"eventId"`
	EventType  string  `json:"eventType"`
	Version    string  `json:"version"`
	OccurredAt string  `json:"occurredAt"`
	Data       Payload `json:"data"`
}

// UnsupportedEventTypeError is returned when an otherwise well-formed
// event carries an eventType other than media.uploaded (spec §4.1 step 1,
// a permanent decode error).
type UnsupportedEventTypeError struct {
	EventType string
}

func (e *UnsupportedEventTypeError) Error() string {
	return fmt.Sprintf("events: unsupported eventType %q, want %q", e.EventType, UploadedEventType)
}

// DecodeBase64JSON decodes base64-encoded UTF-8 JSON into an
// UploadCompletedEvent and rejects any eventType other than
// media.uploaded, per spec §4.1 step 1 and §6 input wire format.
func DecodeBase64JSON(data string) (UploadCompletedEvent, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return UploadCompletedEvent{}, fmt.Errorf("events: invalid base64 payload: %w", err)
	}

	var event UploadCompletedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return UploadCompletedEvent{}, fmt.Errorf("events: invalid JSON payload: %w", err)
	}

	if event.EventType != UploadedEventType {
		return UploadCompletedEvent{}, &UnsupportedEventTypeError{EventType: event.EventType}
	}

	return event, nil
}
