package insight

import (
	"context"
	"strings"

	"github.com/hyperengineering/finsight/internal/rules"
	"github.com/hyperengineering/finsight/internal/types"
)

// Filter selects which kinds a unified feed returns.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterAlert     Filter = "alert"
	FilterTip       Filter = "tip"
	FilterChallenge Filter = "challenge"
)

// ParseFilter parses a filter name. The empty string means FilterAll.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterAlert, FilterTip, FilterChallenge:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

func (f Filter) matches(in types.Insight) bool {
	switch f {
	case FilterAlert:
		return in.Kind == types.KindAlert
	case FilterTip:
		return in.Kind == types.KindTip
	case FilterChallenge:
		return in.Kind == types.KindChallenge
	default:
		return true
	}
}

// Counts summarizes a unified feed before filtering.
type Counts struct {
	Total      int                    `json:"total"`
	ByKind     map[types.Kind]int     `json:"by_kind"`
	ByPriority map[types.Priority]int `json:"by_priority"`
}

// Feed is one rendering of the unified insight list.
type Feed struct {
	Filter      Filter          `json:"filter"`
	Items       []types.Insight `json:"items"`
	Counts      Counts          `json:"counts"`
	UnreadCount int             `json:"unread_count"`
}

// Unified merges alerts, tips and challenge suggestions into one list.
// It keeps no state of its own; mutations go to the owning service.
type Unified struct {
	alerts     *Aggregator
	challenges *Challenges
}

// NewUnified creates a Unified view over the alert and challenge services.
func NewUnified(alerts *Aggregator, challenges *Challenges) *Unified {
	return &Unified{alerts: alerts, challenges: challenges}
}

// Challenges returns the challenge service behind the view.
func (u *Unified) Challenges() *Challenges { return u.challenges }

// Feed returns the merged, sorted feed of scope restricted to filter.
func (u *Unified) Feed(ctx context.Context, scope types.Scope, filter Filter) (*Feed, error) {
	all, err := u.merged(ctx, scope)
	if err != nil {
		return nil, err
	}

	feed := &Feed{
		Filter: filter,
		Items:  []types.Insight{},
		Counts: Counts{
			Total:      len(all),
			ByKind:     make(map[types.Kind]int),
			ByPriority: make(map[types.Priority]int),
		},
	}
	for _, in := range all {
		feed.Counts.ByKind[in.Kind]++
		feed.Counts.ByPriority[in.Priority]++
		if in.HasReadState() && !in.IsRead {
			feed.UnreadCount++
		}
		if filter.matches(in) {
			feed.Items = append(feed.Items, in)
		}
	}
	return feed, nil
}

// merged builds alerts, tips and suggestions from one cached evaluation
// pass, so every item of a feed reflects the same snapshot.
func (u *Unified) merged(ctx context.Context, scope types.Scope) ([]types.Insight, error) {
	e, err := u.alerts.load(ctx, scope, false)
	if err != nil {
		return nil, err
	}
	suggestions := u.challenges.open(ctx, scope, e.snapshot)

	all := make([]types.Insight, 0, len(e.alerts)+len(suggestions))
	all = append(all, e.alerts...)
	all = append(all, rules.Run(e.snapshot, rules.TipEvaluators())...)
	all = append(all, suggestions...)
	Sort(all)
	return all, nil
}

func (u *Unified) lookup(ctx context.Context, scope types.Scope, id string) (types.Insight, error) {
	all, err := u.merged(ctx, scope)
	if err != nil {
		return types.Insight{}, err
	}
	for _, in := range all {
		if in.ID == id {
			return in, nil
		}
	}
	return types.Insight{}, ErrInsightNotFound
}

// MarkAsRead marks an alert read. Tips and suggestions have no read state.
func (u *Unified) MarkAsRead(ctx context.Context, scope types.Scope, id string) error {
	in, err := u.lookup(ctx, scope, id)
	if err != nil {
		return err
	}
	if in.Kind != types.KindAlert {
		return ErrNoReadState
	}
	return u.alerts.markRead(ctx, scope, in)
}

// Delete removes an alert or dismisses a suggestion. Tips are derived on
// every pass and cannot be dismissed.
func (u *Unified) Delete(ctx context.Context, scope types.Scope, id string) error {
	in, err := u.lookup(ctx, scope, id)
	if err != nil {
		return err
	}
	switch in.Kind {
	case types.KindAlert:
		return u.alerts.remove(ctx, scope, in)
	case types.KindChallenge:
		return u.challenges.dismiss(ctx, scope, in)
	default:
		return ErrNotDismissable
	}
}

// MarkAllRead marks every alert read.
func (u *Unified) MarkAllRead(ctx context.Context, scope types.Scope) error {
	return u.alerts.MarkAllRead(ctx, scope)
}

// AcceptSuggestion turns the suggestion with id into a challenge.
func (u *Unified) AcceptSuggestion(ctx context.Context, scope types.Scope, id string) (*types.Challenge, error) {
	in, err := u.lookup(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if in.Kind != types.KindChallenge {
		return nil, ErrInsightNotFound
	}
	return u.challenges.AcceptSuggestion(ctx, scope, in)
}

// Refetch reloads the underlying snapshot and alerts, bypassing the cache.
func (u *Unified) Refetch(ctx context.Context, scope types.Scope) error {
	_, err := u.alerts.Refetch(ctx, scope)
	return err
}
