package insight

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/finsight/internal/rules"
	"github.com/hyperengineering/finsight/internal/types"
)

// DataSource returns the raw financial rows of one scope.
type DataSource interface {
	ListTransactions(ctx context.Context, scope types.Scope, from, to time.Time) ([]types.Transaction, error)
	ListBudgets(ctx context.Context, scope types.Scope, year int, month time.Month) ([]types.Budget, error)
	ListGoals(ctx context.Context, scope types.Scope) ([]types.Goal, error)
	ListInvestments(ctx context.Context, scope types.Scope) ([]types.Investment, error)
}

// AlertStore reads and mutates server-persisted (manual) alerts. Every
// mutation is scoped to userID so one user can never touch another's rows.
type AlertStore interface {
	ListManualAlerts(ctx context.Context, userID string) ([]types.ManualAlert, error)
	MarkManualAlertRead(ctx context.Context, userID, id string) error
	MarkManualAlertsRead(ctx context.Context, userID string, ids []string) error
	DeleteManualAlert(ctx context.Context, userID, id string) error
}

// ChallengeStore persists challenges.
type ChallengeStore interface {
	ListChallenges(ctx context.Context, scope types.Scope) ([]types.Challenge, error)
	CreateChallenge(ctx context.Context, scope types.Scope, c types.NewChallenge) (*types.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, scope types.Scope, id string, status types.ChallengeStatus) error
}

// LoadSnapshot fetches everything the evaluators need for the month of now.
// Each accessor is guarded on its own: a failure is logged and leaves that
// part of the snapshot empty instead of failing the whole load.
func LoadSnapshot(ctx context.Context, src DataSource, scope types.Scope, now time.Time) rules.Snapshot {
	snap := rules.Snapshot{Now: now}

	monthStart := types.MonthStart(now)
	priorStart := monthStart.AddDate(0, -1, 0)
	nextStart := monthStart.AddDate(0, 1, 0)

	txs, err := src.ListTransactions(ctx, scope, priorStart, nextStart)
	if err != nil {
		logFetchError(scope, "transactions", err)
	}
	for _, t := range txs {
		switch {
		case !t.Date.Before(monthStart) && t.Date.Before(nextStart):
			snap.Current = append(snap.Current, t)
		case !t.Date.Before(priorStart) && t.Date.Before(monthStart):
			snap.Prior = append(snap.Prior, t)
		}
	}

	if snap.Budgets, err = src.ListBudgets(ctx, scope, now.Year(), now.Month()); err != nil {
		logFetchError(scope, "budgets", err)
	}
	if snap.Goals, err = src.ListGoals(ctx, scope); err != nil {
		logFetchError(scope, "goals", err)
	}
	if snap.Investments, err = src.ListInvestments(ctx, scope); err != nil {
		logFetchError(scope, "investments", err)
	}

	return snap
}

func logFetchError(scope types.Scope, entity string, err error) {
	slog.Error("insight data fetch failed",
		"component", "insight",
		"scope", scope.String(),
		"entity", entity,
		"error", err,
	)
}
