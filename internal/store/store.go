package store

import (
	"context"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
)

// Store defines the persistence contract for financial rows, manual alerts,
// challenges and the client-local key/value table.
type Store interface {
	CreateTransaction(ctx context.Context, scope types.Scope, t types.Transaction) (*types.Transaction, error)
	ListTransactions(ctx context.Context, scope types.Scope, from, to time.Time) ([]types.Transaction, error)
	CreateBudget(ctx context.Context, scope types.Scope, b types.Budget) (*types.Budget, error)
	ListBudgets(ctx context.Context, scope types.Scope, year int, month time.Month) ([]types.Budget, error)
	CreateGoal(ctx context.Context, scope types.Scope, g types.Goal) (*types.Goal, error)
	ListGoals(ctx context.Context, scope types.Scope) ([]types.Goal, error)
	CreateInvestment(ctx context.Context, scope types.Scope, inv types.Investment) (*types.Investment, error)
	ListInvestments(ctx context.Context, scope types.Scope) ([]types.Investment, error)

	CreateManualAlert(ctx context.Context, userID string, a types.ManualAlert) (*types.ManualAlert, error)
	ListManualAlerts(ctx context.Context, userID string) ([]types.ManualAlert, error)
	MarkManualAlertRead(ctx context.Context, userID, id string) error
	MarkManualAlertsRead(ctx context.Context, userID string, ids []string) error
	DeleteManualAlert(ctx context.Context, userID, id string) error

	CreateChallenge(ctx context.Context, scope types.Scope, c types.NewChallenge) (*types.Challenge, error)
	ListChallenges(ctx context.Context, scope types.Scope) ([]types.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, scope types.Scope, id string, status types.ChallengeStatus) error

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}
