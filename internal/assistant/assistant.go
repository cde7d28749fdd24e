// Package assistant produces a short natural-language digest of an insight
// feed. It is optional: without an API key the Noop implementation is used
// and callers get ErrDisabled.
package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
)

// ErrDisabled is returned when no assistant backend is configured.
var ErrDisabled = errors.New("assistant disabled")

// Digest is a generated summary of a feed.
type Digest struct {
	Summary     string    `json:"summary"`
	Model       string    `json:"model"`
	ItemCount   int       `json:"item_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Assistant defines the interface contract for digest generation.
type Assistant interface {
	Summarize(ctx context.Context, items []types.Insight) (*Digest, error)
	ModelName() string
	Enabled() bool
}

// Compile-time interface check
var _ Assistant = Noop{}

// Noop is the Assistant used when the service has no credentials.
type Noop struct{}

func (Noop) Summarize(ctx context.Context, items []types.Insight) (*Digest, error) {
	return nil, ErrDisabled
}

func (Noop) ModelName() string { return "" }

func (Noop) Enabled() bool { return false }
