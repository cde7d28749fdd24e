package insight

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/rules"
	"github.com/hyperengineering/finsight/internal/types"
)

// Challenges offers challenge suggestions derived from the same snapshot
// as the alert feed, and turns accepted ones into persisted challenges.
type Challenges struct {
	agg       *Aggregator
	store     ChallengeStore
	overrides *override.Store
}

// NewChallenges creates a Challenges service over agg's snapshots.
func NewChallenges(agg *Aggregator, store ChallengeStore, overrides *override.Store) *Challenges {
	return &Challenges{agg: agg, store: store, overrides: overrides}
}

// Suggestions returns the open suggestions of scope: those not dismissed
// and not already backing an active challenge.
func (c *Challenges) Suggestions(ctx context.Context, scope types.Scope) ([]types.Insight, error) {
	snap, err := c.agg.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return c.open(ctx, scope, snap), nil
}

// open evaluates the challenge rules over snap and drops suggestions that
// are dismissed or already taken.
func (c *Challenges) open(ctx context.Context, scope types.Scope, snap rules.Snapshot) []types.Insight {
	taken := make(map[string]bool)
	existing, err := c.store.ListChallenges(ctx, scope)
	if err != nil {
		logFetchError(scope, "challenges", err)
	}
	for _, ch := range existing {
		if ch.SourceKey != "" && ch.Status == types.ChallengeActive {
			taken[ch.SourceKey] = true
		}
	}
	dismissed := c.overrides.GetDismissed(ctx, scope)

	var out []types.Insight
	for _, in := range rules.Run(snap, rules.ChallengeEvaluators()) {
		if taken[in.ID] || dismissed.Has(in.ID) {
			continue
		}
		out = append(out, in)
	}
	Sort(out)
	return out
}

// Accept materializes the open suggestion with id into a challenge.
func (c *Challenges) Accept(ctx context.Context, scope types.Scope, id string) (*types.Challenge, error) {
	sugs, err := c.Suggestions(ctx, scope)
	if err != nil {
		return nil, err
	}
	for _, in := range sugs {
		if in.ID == id {
			return c.AcceptSuggestion(ctx, scope, in)
		}
	}
	return nil, ErrInsightNotFound
}

// AcceptSuggestion persists suggestion as an automatic challenge.
func (c *Challenges) AcceptSuggestion(ctx context.Context, scope types.Scope, suggestion types.Insight) (*types.Challenge, error) {
	if suggestion.Kind != types.KindChallenge || suggestion.Suggestion == nil {
		return nil, fmt.Errorf("accept %s: %w", suggestion.ID, ErrInsightNotFound)
	}
	sug := suggestion.Suggestion

	ch, err := c.store.CreateChallenge(ctx, scope, types.NewChallenge{
		Title:        sug.Title,
		Description:  sug.Description,
		TargetAmount: sug.TargetAmount,
		DurationDays: sug.DurationDays,
		IsAutomatic:  true,
		SourceKey:    sug.SourceKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create challenge from %s: %w", suggestion.ID, err)
	}

	slog.Info("challenge suggestion accepted",
		"component", "insight",
		"scope", scope.String(),
		"suggestion_id", suggestion.ID,
		"challenge_id", ch.ID,
	)
	return ch, nil
}

// Dismiss hides an open suggestion for good.
func (c *Challenges) Dismiss(ctx context.Context, scope types.Scope, id string) error {
	sugs, err := c.Suggestions(ctx, scope)
	if err != nil {
		return err
	}
	for _, in := range sugs {
		if in.ID == id {
			return c.dismiss(ctx, scope, in)
		}
	}
	return ErrInsightNotFound
}

func (c *Challenges) dismiss(ctx context.Context, scope types.Scope, suggestion types.Insight) error {
	if err := c.overrides.MarkDismissed(ctx, scope, suggestion.ID); err != nil {
		return fmt.Errorf("dismiss suggestion %s: %w", suggestion.ID, err)
	}
	return nil
}

// Complete marks a challenge completed.
func (c *Challenges) Complete(ctx context.Context, scope types.Scope, id string) error {
	return c.setStatus(ctx, scope, id, types.ChallengeCompleted)
}

// Abandon marks a challenge abandoned. Once an automatic challenge is no
// longer active its suggestion can be offered again.
func (c *Challenges) Abandon(ctx context.Context, scope types.Scope, id string) error {
	return c.setStatus(ctx, scope, id, types.ChallengeAbandoned)
}

// List returns the challenges of scope.
func (c *Challenges) List(ctx context.Context, scope types.Scope) ([]types.Challenge, error) {
	return c.store.ListChallenges(ctx, scope)
}

func (c *Challenges) setStatus(ctx context.Context, scope types.Scope, id string, status types.ChallengeStatus) error {
	if err := c.store.UpdateChallengeStatus(ctx, scope, id, status); err != nil {
		return fmt.Errorf("set challenge %s %s: %w", id, status, err)
	}
	slog.Info("challenge status changed",
		"component", "insight",
		"scope", scope.String(),
		"challenge_id", id,
		"status", string(status),
	)
	return nil
}
