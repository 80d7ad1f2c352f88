package storage

import (
	"context"
	"log/slog"
	"time"
)

// UploadIndex lists the blob names that have a metadata row.
type UploadIndex interface {
	UploadFilenames(ctx context.Context) ([]string, error)
}

// CleanupService periodically removes orphaned blobs: files in the blob area
// with no metadata row, left behind by a crash between the blob write and the
// row insert. Blobs younger than the grace period are skipped so uploads that
// are still in flight are never touched.
type CleanupService struct {
	index    UploadIndex
	store    Store
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(index UploadIndex, store Store, interval, grace time.Duration) *CleanupService {
	return &CleanupService{
		index:    index,
		store:    store,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
// A non-positive interval disables the loop.
func (cs *CleanupService) Start(ctx context.Context) {
	if cs.interval <= 0 {
		slog.Info("cleanup service disabled")
		close(cs.done)
		return
	}

	slog.Info("cleanup service started", "interval", cs.interval, "grace", cs.grace)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				cs.RunOnce(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

// RunOnce performs a single reconciliation pass and returns the number of
// orphaned blobs removed.
func (cs *CleanupService) RunOnce(ctx context.Context) int {
	blobs, err := cs.store.List(ctx)
	if err != nil {
		slog.Error("failed to list blobs", "error", err)
		return 0
	}
	if len(blobs) == 0 {
		return 0
	}

	names, err := cs.index.UploadFilenames(ctx)
	if err != nil {
		slog.Error("failed to list upload filenames", "error", err)
		return 0
	}
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}

	cutoff := cs.now().Add(-cs.grace)
	var cleaned, failed int
	for _, b := range blobs {
		if _, ok := known[b.Name]; ok {
			continue
		}
		if b.ModTime.After(cutoff) {
			continue
		}

		if err := cs.store.Delete(ctx, b.Name); err != nil {
			slog.Error("failed to delete orphaned blob", "name", b.Name, "error", err)
			failed++
			continue
		}
		cleaned++
		slog.Info("removed orphaned blob", "name", b.Name, "size", b.Size, "modified_at", b.ModTime)
	}

	if cleaned > 0 || failed > 0 {
		slog.Info("cleanup cycle complete",
			"cleaned", cleaned,
			"failed", failed,
			"total_blobs", len(blobs),
		)
	}
	return cleaned
}
