package service

import (
	"context"
	"fmt"
	"log/slog"

	"chatter/internal/server/storage"
)

// Purger wipes every upload and message row.
type Purger interface {
	PurgeAll(ctx context.Context) error
}

// CapacityGuard resets the blob area and the upload/message tables once the
// blob area grows past its limit. It is a full reset, not an eviction.
type CapacityGuard struct {
	store storage.Store
	rows  Purger
	limit int64
}

// NewCapacityGuard creates a guard that purges when the blob area exceeds limit bytes.
func NewCapacityGuard(store storage.Store, rows Purger, limit int64) *CapacityGuard {
	return &CapacityGuard{store: store, rows: rows, limit: limit}
}

// Limit returns the configured capacity in bytes.
func (g *CapacityGuard) Limit() int64 {
	return g.limit
}

// Check measures the blob area and purges everything when it is over the
// limit. It reports whether a purge happened.
func (g *CapacityGuard) Check(ctx context.Context) (bool, error) {
	used, err := g.store.TotalSize(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to measure blob area: %w", err)
	}
	if used <= g.limit {
		return false, nil
	}

	slog.Warn("blob area over capacity, purging", "used", used, "limit", g.limit)
	if err := g.Purge(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Purge deletes all upload and message rows, then every blob. Rows go
// first so a failed blob sweep only leaves orphans for the reconciler.
func (g *CapacityGuard) Purge(ctx context.Context) error {
	if err := g.rows.PurgeAll(ctx); err != nil {
		return fmt.Errorf("failed to purge rows: %w", err)
	}

	removed, err := g.store.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge blobs: %w", err)
	}

	slog.Info("purged all uploads and messages", "blobs_removed", removed)
	return nil
}
