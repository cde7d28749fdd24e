package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the three insight sources.
type Kind string

const (
	KindAlert     Kind = "alert"
	KindTip       Kind = "tip"
	KindChallenge Kind = "challenge"
)

// Category is the domain tag of an insight, independent of its priority.
type Category string

const (
	CategoryBudget     Category = "budget"
	CategorySpending   Category = "spending"
	CategoryGoal       Category = "goal"
	CategoryInvestment Category = "investment"
	CategoryTip        Category = "tip"
	CategoryChallenge  Category = "challenge"
)

// Priority drives sort order and visual weight.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// DefaultAlertType is the category assigned to manual alerts whose stored
// alert type is not recognized.
const DefaultAlertType = CategoryTip

// DefaultPriority is assigned to manual alerts with an unrecognized priority.
const DefaultPriority = PriorityMedium

// ParseAlertType maps a stored alert type to a Category. It is total:
// unknown, empty or challenge values map to DefaultAlertType.
func ParseAlertType(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryBudget:
		return CategoryBudget
	case CategorySpending:
		return CategorySpending
	case CategoryGoal:
		return CategoryGoal
	case CategoryInvestment:
		return CategoryInvestment
	case CategoryTip:
		return CategoryTip
	default:
		return DefaultAlertType
	}
}

// ParsePriority maps a stored priority to a Priority, defaulting to
// DefaultPriority for anything outside low/medium/high.
func ParsePriority(raw string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	default:
		return DefaultPriority
	}
}

// ChallengeSuggestion is the payload needed to materialize a Challenge
// when the user accepts an automatically suggested one.
type ChallengeSuggestion struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	DurationDays int             `json:"duration_days"`
	Reason       string          `json:"reason"`
	// SourceKey identifies the suggestion across evaluation passes. It is
	// the suggestion's insight id and becomes the accepted challenge's
	// source_key.
	SourceKey string `json:"source_key"`
}

// Insight is a derived or stored notification surfaced to the user.
type Insight struct {
	ID          string               `json:"id"`
	Kind        Kind                 `json:"kind"`
	Category    Category             `json:"category"`
	Priority    Priority             `json:"priority"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	IsRead      bool                 `json:"is_read"`
	IsAutomatic bool                 `json:"is_automatic"`
	CreatedAt   time.Time            `json:"created_at"`
	ActionURL   string               `json:"action_url,omitempty"`
	Suggestion  *ChallengeSuggestion `json:"suggestion,omitempty"`
}

// HasReadState reports whether the insight tracks read/unread state.
// Only alerts do; tips and challenge suggestions are stateless.
func (i Insight) HasReadState() bool {
	return i.Kind == KindAlert
}

// FromManualAlert normalizes a stored alert row into an Insight.
func FromManualAlert(a ManualAlert) Insight {
	return Insight{
		ID:          a.ID,
		Kind:        KindAlert,
		Category:    ParseAlertType(a.AlertType),
		Priority:    ParsePriority(a.Priority),
		Title:       a.Title,
		Message:     a.Message,
		IsRead:      a.IsRead,
		IsAutomatic: false,
		CreatedAt:   a.CreatedAt,
		ActionURL:   a.ActionURL,
	}
}
