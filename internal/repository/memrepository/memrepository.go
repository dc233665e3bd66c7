// Package memrepository is an in-memory Repository fake used by unit
// tests for the provisioner, worker, and reconciler. It mirrors the
// teacher's own style of guarding a plain map with a sync.Mutex (see
// Acexy.streams in the teacher's lib/acexy/acexy.go) rather than reaching
// for a mocking framework.
package memrepository

import (
	"context"
	"sort"
	"sync"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/repository"
)

// Repository is a sync.Mutex-guarded map implementing
// repository.Repository entirely in memory.
type Repository struct {
	mu      sync.Mutex
	records map[string]channel.Metadata

	// Upserts records every upsert call in order, for assertions about
	// call count and field values in tests (spec §8 scenarios reference
	// "one upsert", "zero upserts").
	Upserts []channel.Metadata
}

// New returns an empty in-memory repository.
func New() *Repository {
	return &Repository{records: make(map[string]channel.Metadata)}
}

func (r *Repository) FindByContentID(_ context.Context, contentID string) (channel.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[contentID]
	if !ok {
		return channel.Metadata{}, repository.ErrNotFound
	}
	return rec, nil
}

func (r *Repository) Upsert(_ context.Context, record channel.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ContentID] = record
	r.Upserts = append(r.Upserts, record)
	return nil
}

func (r *Repository) ListFailed(_ context.Context, limit int) ([]channel.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []channel.Metadata
	for _, rec := range r.records {
		if rec.Status == channel.StatusFailed {
			failed = append(failed, rec)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].LastProvisionedAt < failed[j].LastProvisionedAt
	})
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

// Seed inserts a record directly, bypassing Upsert bookkeeping. Tests use
// this to establish "prior record exists" preconditions.
func (r *Repository) Seed(record channel.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ContentID] = record
}
