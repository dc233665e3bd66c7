// Package admin implements the thin operator façade (spec §2 "Admin
// façade (external)"): synchronous get/retire/purge/rotate/unstick
// operations (there is no register operation) with no schema validation beyond what the Repository and
// Media Engine Client already enforce. This is explicitly out-of-core
// (10% of the budget) — it exists to let an operator unstick a record the
// core's automated paths won't touch (e.g. one left in "provisioning"
// by a canceled call, per spec §5 Cancellation).
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/mediaengine"
	"github.com/streamforge/channelctl/internal/repository"
)

// Facade exposes operator-driven lifecycle operations outside the
// automated upload/reconcile paths.
type Facade struct {
	repo   repository.Repository
	engine mediaengine.Client
	clock  func() time.Time
}

// New builds a Facade over the same Repository and Media Engine Client the
// core uses.
func New(repo repository.Repository, engine mediaengine.Client, clock func() time.Time) *Facade {
	if clock == nil {
		clock = time.Now
	}
	return &Facade{repo: repo, engine: engine, clock: clock}
}

// Get returns the stored record for contentID, or repository.ErrNotFound.
func (f *Facade) Get(ctx context.Context, contentID string) (channel.Metadata, error) {
	return f.repo.FindByContentID(ctx, contentID)
}

// Retire transitions a ready record to retired (spec §4.2 state machine:
// ready --admin retire--> retired, terminal for the core).
func (f *Facade) Retire(ctx context.Context, contentID string) error {
	record, err := f.repo.FindByContentID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("admin: retire %q: %w", contentID, err)
	}
	if record.Status != channel.StatusReady {
		return fmt.Errorf("admin: retire %q: status is %q, want ready", contentID, record.Status)
	}

	record.Status = channel.StatusRetired
	record.LastProvisionedAt = f.clock().UTC().Format(time.RFC3339)
	if err := f.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("admin: persist retired %q: %w", contentID, err)
	}
	return nil
}

// Purge deletes the remote channel of any record with an assigned channel
// via the engine, whatever the record's status, without touching the
// stored record (the core never deletes records, per spec §3 Lifecycle).
func (f *Facade) Purge(ctx context.Context, contentID string) error {
	record, err := f.repo.FindByContentID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("admin: purge %q: %w", contentID, err)
	}
	if !record.IsAssigned() {
		return fmt.Errorf("admin: purge %q: no channel assigned", contentID)
	}
	if err := f.engine.DeleteChannel(ctx, record.ChannelID); err != nil {
		return fmt.Errorf("admin: deleteChannel %q: %w", record.ChannelID, err)
	}
	return nil
}

// RotateIngestKey rotates the remote channel's ingest key.
func (f *Facade) RotateIngestKey(ctx context.Context, contentID string) error {
	record, err := f.repo.FindByContentID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("admin: rotateIngestKey %q: %w", contentID, err)
	}
	if !record.IsAssigned() {
		return fmt.Errorf("admin: rotateIngestKey %q: no channel assigned", contentID)
	}
	if err := f.engine.RotateIngestKey(ctx, record.ChannelID); err != nil {
		return fmt.Errorf("admin: rotateIngestKey %q: %w", record.ChannelID, err)
	}
	return nil
}

// ManuallyUnstick forces a record stuck in "provisioning" (e.g. left there
// by a canceled call, spec §5 Cancellation) back to "failed" so the
// reconciliation loop will pick it up on its next sweep.
func (f *Facade) ManuallyUnstick(ctx context.Context, contentID string) error {
	record, err := f.repo.FindByContentID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("admin: unstick %q: %w", contentID, err)
	}
	if record.Status != channel.StatusProvisioning {
		return fmt.Errorf("admin: unstick %q: status is %q, want provisioning", contentID, record.Status)
	}

	record.Status = channel.StatusFailed
	record.LastProvisionedAt = f.clock().UTC().Format(time.RFC3339)
	if err := f.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("admin: persist unstuck %q: %w", contentID, err)
	}
	return nil
}
