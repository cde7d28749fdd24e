package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scope identifies the tenancy boundary every financial row belongs to:
// one user working inside one workspace (personal, family or business book).
type Scope struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
}

// String returns the scope as "user/workspace", used for cache keys and logs.
func (s Scope) String() string {
	return s.UserID + "/" + s.WorkspaceID
}

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a single income or expense row.
type Transaction struct {
	ID          string          `json:"id" yaml:"id"`
	Type        TransactionType `json:"type" yaml:"type"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Category    string          `json:"category" yaml:"category"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Date        time.Time       `json:"date" yaml:"date"`
	CreatedAt   time.Time       `json:"created_at" yaml:"-"`
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TransactionExpense
}

// IsIncome reports whether the transaction is income.
func (t Transaction) IsIncome() bool {
	return t.Type == TransactionIncome
}

// Budget is a monthly spending limit for one category.
type Budget struct {
	ID          string          `json:"id" yaml:"id"`
	Category    string          `json:"category" yaml:"category"`
	AmountLimit decimal.Decimal `json:"amount_limit" yaml:"amount_limit"`
	Year        int             `json:"year" yaml:"year"`
	Month       time.Month      `json:"month" yaml:"month"`
}

// Goal is a savings target, optionally bound to a deadline.
type Goal struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	CurrentAmount decimal.Decimal `json:"current_amount" yaml:"current_amount"`
	TargetAmount  decimal.Decimal `json:"target_amount" yaml:"target_amount"`
	TargetDate    *time.Time      `json:"target_date,omitempty" yaml:"target_date"`
	CreatedAt     time.Time       `json:"created_at" yaml:"created_at"`
}

// Investment is a position with its expected annual return, in percent.
type Investment struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	ExpectedReturn decimal.Decimal `json:"expected_return" yaml:"expected_return"`
}

// ManualAlert is a server-persisted alert row. AlertType and Priority are
// kept raw so that values outside the known enums survive the round trip;
// they are normalized with ParseAlertType and ParsePriority when read.
type ManualAlert struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id,omitempty" yaml:"-"`
	Title       string    `json:"title" yaml:"title"`
	Message     string    `json:"message" yaml:"message"`
	AlertType   string    `json:"alert_type" yaml:"alert_type"`
	Priority    string    `json:"priority" yaml:"priority"`
	IsRead      bool      `json:"is_read" yaml:"is_read"`
	ActionURL   string    `json:"action_url,omitempty" yaml:"action_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// ChallengeStatus is the lifecycle state of a persisted challenge.
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeAbandoned ChallengeStatus = "abandoned"
)

// Challenge is a persisted savings or spending challenge.
type Challenge struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	DurationDays int             `json:"duration_days"`
	IsAutomatic  bool            `json:"is_automatic"`
	SourceKey    string          `json:"source_key,omitempty"`
	Status       ChallengeStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewChallenge carries the fields needed to create a Challenge.
type NewChallenge struct {
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	DurationDays int
	IsAutomatic  bool
	SourceKey    string
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Assistant string `json:"assistant"`
}
