// Package repository defines the Metadata Repository contract (spec §4.3):
// a durable, contentId-keyed store over channel.Metadata with a
// status-indexed scan for the reconciliation loop.
package repository

import (
	"context"
	"errors"

	"github.com/streamforge/channelctl/internal/channel"
)

// ErrNotFound is returned by FindByContentID when no record exists for the
// given content id.
var ErrNotFound = errors.New("repository: record not found")

// Repository is the contract every provisioning-pipeline component depends
// on. The core treats it as authoritative — there is no in-memory cache
// that outlives a single provisioning call (spec §4.3).
type Repository interface {
	// FindByContentID returns the record for contentID, or ErrNotFound if
	// none exists.
	FindByContentID(ctx context.Context, contentID string) (channel.Metadata, error)

	// Upsert durably replaces the full record keyed by contentID. It must
	// not return success until the write is durable. Concurrent upserts
	// for the same contentID are serialized by the store at record
	// granularity (last writer wins) — callers are expected to uphold the
	// single-writer-per-contentId discipline described in spec §5.
	Upsert(ctx context.Context, record channel.Metadata) error

	// ListFailed scans status=="failed" records bounded by limit. Order is
	// stable enough that repeated calls make progress; implementations in
	// this module order by lastProvisionedAt ascending so the oldest
	// failures are reconciled first (spec §9 open question, resolved in
	// DESIGN.md).
	ListFailed(ctx context.Context, limit int) ([]channel.Metadata, error)
}
