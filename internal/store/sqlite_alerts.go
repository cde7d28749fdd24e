package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/oklog/ulid/v2"
)

// CreateManualAlert stores a manual alert owned by userID.
func (s *SQLiteStore) CreateManualAlert(ctx context.Context, userID string, a types.ManualAlert) (*types.ManualAlert, error) {
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, workspace_id, title, message, alert_type, priority, is_read, action_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, userID, a.WorkspaceID, a.Title, a.Message, a.AlertType, a.Priority, boolInt(a.IsRead), a.ActionURL,
		formatTime(a.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return &a, nil
}

// ListManualAlerts returns the manual alerts of userID, newest first.
func (s *SQLiteStore) ListManualAlerts(ctx context.Context, userID string) ([]types.ManualAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, title, message, alert_type, priority, is_read, action_url, created_at
		FROM alerts
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []types.ManualAlert
	for rows.Next() {
		var a types.ManualAlert
		var isRead int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.Title, &a.Message, &a.AlertType, &a.Priority,
			&isRead, &a.ActionURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.IsRead = isRead != 0
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// MarkManualAlertRead marks one alert of userID read.
func (s *SQLiteStore) MarkManualAlertRead(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	return checkAffected(result)
}

// MarkManualAlertsRead marks ids read in a single statement. Ids that do not
// belong to userID are left untouched.
func (s *SQLiteStore) MarkManualAlertsRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("update alerts: %w", err)
	}
	return nil
}

// DeleteManualAlert deletes one alert of userID.
func (s *SQLiteStore) DeleteManualAlert(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return checkAffected(result)
}
