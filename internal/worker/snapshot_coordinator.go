package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hyperengineering/finsight/internal/snapshot"
)

// Snapshotter writes a consistent copy of the database to a path.
// Implemented by store.SQLiteStore.
type Snapshotter interface {
	Snapshot(ctx context.Context, destPath string) error
}

// SnapshotResult describes one completed snapshot.
type SnapshotResult struct {
	Name     string
	Path     string
	Uploaded bool
}

// SnapshotCoordinator periodically copies the database into dir and, when
// remote storage is configured, uploads the copy.
type SnapshotCoordinator struct {
	store    Snapshotter
	uploader snapshot.Uploader
	dir      string
	interval time.Duration
	now      func() time.Time
}

// NewSnapshotCoordinator creates a coordinator. A nil uploader keeps
// snapshots local; a nil now uses time.Now.
func NewSnapshotCoordinator(store Snapshotter, uploader snapshot.Uploader, dir string, interval time.Duration, now func() time.Time) *SnapshotCoordinator {
	if uploader == nil {
		uploader = snapshot.NoopUploader{}
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotCoordinator{
		store:    store,
		uploader: uploader,
		dir:      dir,
		interval: interval,
		now:      now,
	}
}

// Run takes a snapshot immediately and then once per interval until ctx is
// cancelled.
func (c *SnapshotCoordinator) Run(ctx context.Context) {
	slog.Info("snapshot coordinator started",
		"component", "worker",
		"worker", "snapshot-coordinator",
		"interval", c.interval.String(),
		"remote", c.uploader.Remote(),
	)

	c.runLogged(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot coordinator stopped",
				"component", "worker",
				"worker", "snapshot-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.runLogged(ctx)
		}
	}
}

func (c *SnapshotCoordinator) runLogged(ctx context.Context) {
	start := c.now()
	res, err := c.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("snapshot failed",
			"component", "worker",
			"worker", "snapshot-coordinator",
			"error", err,
		)
		return
	}
	slog.Info("snapshot cycle completed",
		"component", "worker",
		"worker", "snapshot-coordinator",
		"name", res.Name,
		"uploaded", res.Uploaded,
		"duration_ms", c.now().Sub(start).Milliseconds(),
	)
}

// RunOnce writes dir/current.db and uploads it under a timestamped name.
// An upload failure is logged and leaves Uploaded false; only a failed
// local copy is returned as an error.
func (c *SnapshotCoordinator) RunOnce(ctx context.Context) (SnapshotResult, error) {
	res := SnapshotResult{
		Name: snapshot.Name(c.now()),
		Path: filepath.Join(c.dir, "current.db"),
	}

	if err := c.store.Snapshot(ctx, res.Path); err != nil {
		return res, fmt.Errorf("snapshot database: %w", err)
	}

	if !c.uploader.Remote() {
		return res, nil
	}
	if err := c.uploader.Upload(ctx, res.Name, res.Path); err != nil {
		slog.Warn("snapshot upload failed",
			"component", "worker",
			"worker", "snapshot-coordinator",
			"name", res.Name,
			"error", err,
		)
		return res, nil
	}
	res.Uploaded = true
	return res, nil
}
