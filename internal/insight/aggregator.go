// Package insight turns raw financial rows into the ranked notification
// feed: it runs the rule evaluators, merges in manual alerts, overlays the
// local read/dismissed state and exposes the feed's mutations.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/rules"
	"github.com/hyperengineering/finsight/internal/types"
)

// Options tunes an Aggregator.
type Options struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// Aggregator produces the alert feed of a scope.
//
// A fetched feed is cached per scope for CacheTTL; concurrent misses for the
// same scope share one evaluation pass. Mutations update the cached feed
// optimistically and then persist: automatic insights through the override
// store, manual ones through the AlertStore. When persisting fails the
// cached feed is invalidated so the next Fetch reconciles with storage.
type Aggregator struct {
	data      DataSource
	alerts    AlertStore
	overrides *override.Store
	cache     *Cache
	now       func() time.Time
	group     singleflight.Group
}

// NewAggregator creates an Aggregator.
func NewAggregator(data DataSource, alerts AlertStore, overrides *override.Store, opts Options) *Aggregator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		data:      data,
		alerts:    alerts,
		overrides: overrides,
		cache:     NewCache(opts.CacheTTL, now),
		now:       now,
	}
}

// Fetch returns the sorted alert feed of scope, from cache when fresh.
// Data failures degrade the feed instead of failing it; the only error
// returned is the context's.
func (a *Aggregator) Fetch(ctx context.Context, scope types.Scope) ([]types.Insight, error) {
	e, err := a.load(ctx, scope, false)
	if err != nil {
		return nil, err
	}
	return e.alerts, nil
}

// Refetch bypasses the cache window.
func (a *Aggregator) Refetch(ctx context.Context, scope types.Scope) ([]types.Insight, error) {
	e, err := a.load(ctx, scope, true)
	if err != nil {
		return nil, err
	}
	return e.alerts, nil
}

// Snapshot returns the snapshot behind the current feed of scope.
func (a *Aggregator) Snapshot(ctx context.Context, scope types.Scope) (rules.Snapshot, error) {
	e, err := a.load(ctx, scope, false)
	if err != nil {
		return rules.Snapshot{}, err
	}
	return e.snapshot, nil
}

// UnreadCount returns how many alerts of scope are unread.
func (a *Aggregator) UnreadCount(ctx context.Context, scope types.Scope) (int, error) {
	alerts, err := a.Fetch(ctx, scope)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, in := range alerts {
		if !in.IsRead {
			n++
		}
	}
	return n, nil
}

func (a *Aggregator) load(ctx context.Context, scope types.Scope, force bool) (entry, error) {
	if force {
		a.cache.Invalidate(scope)
	} else if e, ok := a.cache.get(scope); ok {
		return e, nil
	}

	for {
		v, err, _ := a.group.Do(scope.String(), func() (any, error) {
			e := a.evaluate(ctx, scope)
			if err := ctx.Err(); err != nil {
				return entry{}, err
			}
			a.cache.put(scope, e)
			return e, nil
		})
		if err == nil {
			e := v.(entry)
			e.alerts = cloneInsights(e.alerts)
			return e, nil
		}
		// A shared pass fails only when its leader's context ends. Callers
		// whose own context is still live start a pass of their own.
		if ctx.Err() != nil {
			return entry{}, ctx.Err()
		}
	}
}

// evaluate runs one full pass: snapshot, evaluators, manual merge,
// override overlay and sort.
func (a *Aggregator) evaluate(ctx context.Context, scope types.Scope) entry {
	start := a.now()
	snap := LoadSnapshot(ctx, a.data, scope, start)

	read := a.overrides.GetRead(ctx, scope)
	dismissed := a.overrides.GetDismissed(ctx, scope)

	seen := make(map[string]bool)
	var feed []types.Insight
	for _, in := range rules.Run(snap, rules.AlertEvaluators()) {
		if dismissed.Has(in.ID) || seen[in.ID] {
			continue
		}
		seen[in.ID] = true
		in.IsRead = read.Has(in.ID)
		feed = append(feed, in)
	}

	manual, err := a.alerts.ListManualAlerts(ctx, scope.UserID)
	if err != nil {
		logFetchError(scope, "manual_alerts", err)
	}
	for _, m := range manual {
		if m.WorkspaceID != "" && m.WorkspaceID != scope.WorkspaceID {
			continue
		}
		in := types.FromManualAlert(m)
		if seen[in.ID] {
			continue
		}
		seen[in.ID] = true
		feed = append(feed, in)
	}

	Sort(feed)

	slog.Debug("insight feed evaluated",
		"component", "insight",
		"scope", scope.String(),
		"alerts", len(feed),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return entry{snapshot: snap, alerts: feed}
}

// find returns the alert with id from the current feed of scope.
func (a *Aggregator) find(ctx context.Context, scope types.Scope, id string) (types.Insight, error) {
	alerts, err := a.Fetch(ctx, scope)
	if err != nil {
		return types.Insight{}, err
	}
	for _, in := range alerts {
		if in.ID == id {
			return in, nil
		}
	}
	return types.Insight{}, ErrInsightNotFound
}

// MarkAsRead marks one alert read.
func (a *Aggregator) MarkAsRead(ctx context.Context, scope types.Scope, id string) error {
	in, err := a.find(ctx, scope, id)
	if err != nil {
		return err
	}
	return a.markRead(ctx, scope, in)
}

func (a *Aggregator) markRead(ctx context.Context, scope types.Scope, in types.Insight) error {
	id := in.ID
	a.cache.update(scope, func(alerts []types.Insight) []types.Insight {
		for i := range alerts {
			if alerts[i].ID == id {
				alerts[i].IsRead = true
			}
		}
		Sort(alerts)
		return alerts
	})

	var err error
	if in.IsAutomatic {
		err = a.overrides.MarkRead(ctx, scope, id)
	} else {
		err = a.alerts.MarkManualAlertRead(ctx, scope.UserID, id)
	}
	if err != nil {
		a.cache.Invalidate(scope)
		return fmt.Errorf("mark alert %s read: %w", id, err)
	}
	return nil
}

// Delete removes one alert. Automatic alerts are dismissed for good; manual
// ones are deleted from storage.
func (a *Aggregator) Delete(ctx context.Context, scope types.Scope, id string) error {
	in, err := a.find(ctx, scope, id)
	if err != nil {
		return err
	}
	return a.remove(ctx, scope, in)
}

func (a *Aggregator) remove(ctx context.Context, scope types.Scope, in types.Insight) error {
	id := in.ID
	a.cache.update(scope, func(alerts []types.Insight) []types.Insight {
		out := alerts[:0]
		for _, al := range alerts {
			if al.ID != id {
				out = append(out, al)
			}
		}
		return out
	})

	var err error
	if in.IsAutomatic {
		err = a.overrides.MarkDismissed(ctx, scope, id)
	} else {
		err = a.alerts.DeleteManualAlert(ctx, scope.UserID, id)
	}
	if err != nil {
		a.cache.Invalidate(scope)
		return fmt.Errorf("delete alert %s: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every unread alert read: automatic ids in one override
// write, manual ids in one batched store update.
func (a *Aggregator) MarkAllRead(ctx context.Context, scope types.Scope) error {
	alerts, err := a.Fetch(ctx, scope)
	if err != nil {
		return err
	}

	var autoIDs, manualIDs []string
	for _, in := range alerts {
		if in.IsRead {
			continue
		}
		if in.IsAutomatic {
			autoIDs = append(autoIDs, in.ID)
		} else {
			manualIDs = append(manualIDs, in.ID)
		}
	}
	if len(autoIDs) == 0 && len(manualIDs) == 0 {
		return nil
	}

	a.cache.update(scope, func(alerts []types.Insight) []types.Insight {
		for i := range alerts {
			alerts[i].IsRead = true
		}
		Sort(alerts)
		return alerts
	})

	var errs []error
	if err := a.overrides.MarkReadMany(ctx, scope, autoIDs); err != nil {
		errs = append(errs, err)
	}
	if len(manualIDs) > 0 {
		if err := a.alerts.MarkManualAlertsRead(ctx, scope.UserID, manualIDs); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.cache.Invalidate(scope)
		return fmt.Errorf("mark all alerts read: %w", err)
	}
	return nil
}
