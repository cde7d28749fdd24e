// Package worker holds the background loops started by the server.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops override marks older than a cutoff across every scope.
// Implemented by override.Store.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionCoordinator periodically prunes read/dismissed marks that are
// older than the configured retention.
type RetentionCoordinator struct {
	pruner    Pruner
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewRetentionCoordinator creates a coordinator. A nil now uses time.Now.
func NewRetentionCoordinator(pruner Pruner, interval, retention time.Duration, now func() time.Time) *RetentionCoordinator {
	if now == nil {
		now = time.Now
	}
	return &RetentionCoordinator{
		pruner:    pruner,
		interval:  interval,
		retention: retention,
		now:       now,
	}
}

// Run starts the retention loop. It blocks until ctx is cancelled.
// The first prune happens after one interval, not at startup.
func (c *RetentionCoordinator) Run(ctx context.Context) {
	slog.Info("retention coordinator started",
		"component", "worker",
		"worker", "retention-coordinator",
		"interval", c.interval.String(),
		"retention", c.retention.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention coordinator stopped",
				"component", "worker",
				"worker", "retention-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce prunes marks older than now minus retention and returns how many
// were removed. Failures are logged, not returned.
func (c *RetentionCoordinator) RunOnce(ctx context.Context) int {
	start := c.now()
	cutoff := start.Add(-c.retention)

	removed, err := c.pruner.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return removed // Graceful shutdown, don't log as error
		}
		slog.Error("override prune failed",
			"component", "worker",
			"worker", "retention-coordinator",
			"cutoff", cutoff.Format(time.RFC3339),
			"removed", removed,
			"error", err,
		)
		return removed
	}

	slog.Info("retention cycle completed",
		"component", "worker",
		"worker", "retention-coordinator",
		"cutoff", cutoff.Format(time.RFC3339),
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return removed
}
