package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/oklog/ulid/v2"
)

// CreateTransaction stores t in scope. An empty ID is assigned a ULID.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, scope types.Scope, t types.Transaction) (*types.Transaction, error) {
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, workspace_id, type, amount, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, scope.UserID, scope.WorkspaceID, string(t.Type), t.Amount.String(), t.Category, t.Description,
		formatTime(t.Date), formatTime(t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &t, nil
}

// ListTransactions returns the transactions of scope dated in [from, to).
func (s *SQLiteStore) ListTransactions(ctx context.Context, scope types.Scope, from, to time.Time) ([]types.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, category, description, date, created_at
		FROM transactions
		WHERE user_id = ? AND workspace_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC, id ASC
	`, scope.UserID, scope.WorkspaceID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []types.Transaction
	for rows.Next() {
		var t types.Transaction
		var typ, date, createdAt string
		if err := rows.Scan(&t.ID, &typ, &t.Amount, &t.Category, &t.Description, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = types.TransactionType(typ)
		t.Date = parseTime(date)
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// CreateBudget stores b in scope.
func (s *SQLiteStore) CreateBudget(ctx context.Context, scope types.Scope, b types.Budget) (*types.Budget, error) {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, workspace_id, category, amount_limit, year, month)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, scope.UserID, scope.WorkspaceID, b.Category, b.AmountLimit.String(), b.Year, int(b.Month))
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	return &b, nil
}

// ListBudgets returns the budgets of scope for one month.
func (s *SQLiteStore) ListBudgets(ctx context.Context, scope types.Scope, year int, month time.Month) ([]types.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, amount_limit, year, month
		FROM budgets
		WHERE user_id = ? AND workspace_id = ? AND year = ? AND month = ?
		ORDER BY category ASC, id ASC
	`, scope.UserID, scope.WorkspaceID, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []types.Budget
	for rows.Next() {
		var b types.Budget
		var m int
		if err := rows.Scan(&b.ID, &b.Category, &b.AmountLimit, &b.Year, &m); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Month = time.Month(m)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// CreateGoal stores g in scope.
func (s *SQLiteStore) CreateGoal(ctx context.Context, scope types.Scope, g types.Goal) (*types.Goal, error) {
	if g.ID == "" {
		g.ID = ulid.Make().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, workspace_id, name, current_amount, target_amount, target_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, scope.UserID, scope.WorkspaceID, g.Name, g.CurrentAmount.String(), g.TargetAmount.String(),
		nullTime(g.TargetDate), formatTime(g.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return &g, nil
}

// ListGoals returns every goal of scope.
func (s *SQLiteStore) ListGoals(ctx context.Context, scope types.Scope) ([]types.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, current_amount, target_amount, target_date, created_at
		FROM goals
		WHERE user_id = ? AND workspace_id = ?
		ORDER BY created_at ASC, id ASC
	`, scope.UserID, scope.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []types.Goal
	for rows.Next() {
		var g types.Goal
		var targetDate sql.NullString
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Name, &g.CurrentAmount, &g.TargetAmount, &targetDate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetDate = parseNullTime(targetDate)
		g.CreatedAt = parseTime(createdAt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// CreateInvestment stores inv in scope.
func (s *SQLiteStore) CreateInvestment(ctx context.Context, scope types.Scope, inv types.Investment) (*types.Investment, error) {
	if inv.ID == "" {
		inv.ID = ulid.Make().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investments (id, user_id, workspace_id, name, amount, expected_return)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inv.ID, scope.UserID, scope.WorkspaceID, inv.Name, inv.Amount.String(), inv.ExpectedReturn.String())
	if err != nil {
		return nil, fmt.Errorf("insert investment: %w", err)
	}
	return &inv, nil
}

// ListInvestments returns every investment of scope.
func (s *SQLiteStore) ListInvestments(ctx context.Context, scope types.Scope) ([]types.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, amount, expected_return
		FROM investments
		WHERE user_id = ? AND workspace_id = ?
		ORDER BY name ASC, id ASC
	`, scope.UserID, scope.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("query investments: %w", err)
	}
	defer rows.Close()

	var out []types.Investment
	for rows.Next() {
		var inv types.Investment
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Amount, &inv.ExpectedReturn); err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investments: %w", err)
	}
	return out, nil
}
