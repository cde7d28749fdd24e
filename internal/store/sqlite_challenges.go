package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/oklog/ulid/v2"
)

// CreateChallenge stores a new active challenge in scope.
func (s *SQLiteStore) CreateChallenge(ctx context.Context, scope types.Scope, c types.NewChallenge) (*types.Challenge, error) {
	ch := types.Challenge{
		ID:           ulid.Make().String(),
		Title:        c.Title,
		Description:  c.Description,
		TargetAmount: c.TargetAmount,
		DurationDays: c.DurationDays,
		IsAutomatic:  c.IsAutomatic,
		SourceKey:    c.SourceKey,
		Status:       types.ChallengeActive,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges (id, user_id, workspace_id, title, description, target_amount,
		                        duration_days, is_automatic, source_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ID, scope.UserID, scope.WorkspaceID, ch.Title, ch.Description, ch.TargetAmount.String(),
		ch.DurationDays, boolInt(ch.IsAutomatic), ch.SourceKey, string(ch.Status), formatTime(ch.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert challenge: %w", err)
	}
	return &ch, nil
}

// ListChallenges returns every challenge of scope, newest first.
func (s *SQLiteStore) ListChallenges(ctx context.Context, scope types.Scope) ([]types.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, target_amount, duration_days, is_automatic, source_key, status, created_at
		FROM challenges
		WHERE user_id = ? AND workspace_id = ?
		ORDER BY created_at DESC, id ASC
	`, scope.UserID, scope.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer rows.Close()

	var out []types.Challenge
	for rows.Next() {
		var ch types.Challenge
		var isAutomatic int
		var status, createdAt string
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Description, &ch.TargetAmount, &ch.DurationDays,
			&isAutomatic, &ch.SourceKey, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		ch.IsAutomatic = isAutomatic != 0
		ch.Status = types.ChallengeStatus(status)
		ch.CreatedAt = parseTime(createdAt)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	return out, nil
}

// UpdateChallengeStatus moves a challenge of scope to status.
func (s *SQLiteStore) UpdateChallengeStatus(ctx context.Context, scope types.Scope, id string, status types.ChallengeStatus) error {
	switch status {
	case types.ChallengeActive, types.ChallengeCompleted, types.ChallengeAbandoned:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE challenges SET status = ?
		WHERE id = ? AND user_id = ? AND workspace_id = ?
	`, string(status), id, scope.UserID, scope.WorkspaceID)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	return checkAffected(result)
}
