package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/types"
	"github.com/shopspring/decimal"
)

var (
	scopeA = types.Scope{UserID: "u1", WorkspaceID: "personal"}
	scopeB = types.Scope{UserID: "u1", WorkspaceID: "business"}
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStore_NewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "finsight.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
}

func TestStore_TransactionsRangeAndScope(t *testing.T) {
	// Given: transactions on both sides of October and in another workspace
	s := newTestStore(t)
	ctx := context.Background()
	rows := []struct {
		scope types.Scope
		date  time.Time
		amt   string
	}{
		{scopeA, time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC), "10"},
		{scopeA, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), "20.50"},
		{scopeA, time.Date(2026, 10, 31, 12, 0, 0, 0, time.UTC), "30"},
		{scopeA, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), "40"},
		{scopeB, time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), "50"},
	}
	for _, r := range rows {
		_, err := s.CreateTransaction(ctx, r.scope, types.Transaction{
			Type: types.TransactionExpense, Amount: dec(r.amt), Category: "Casa", Date: r.date,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// When
	got, err := s.ListTransactions(ctx, scopeA,
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))

	// Then: only the two October rows of scopeA, with exact amounts
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	if !got[0].Amount.Equal(dec("20.50")) || !got[1].Amount.Equal(dec("30")) {
		t.Errorf("amounts = %s, %s", got[0].Amount, got[1].Amount)
	}
	if got[0].Type != types.TransactionExpense || got[0].ID == "" {
		t.Errorf("row = %+v", got[0])
	}
}

func TestStore_BudgetsByMonth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, b := range []types.Budget{
		{ID: "oct", Category: "Alimentação", AmountLimit: dec("500"), Year: 2026, Month: time.October},
		{ID: "nov", Category: "Alimentação", AmountLimit: dec("600"), Year: 2026, Month: time.November},
		{ID: "oct-last-year", Category: "Alimentação", AmountLimit: dec("400"), Year: 2025, Month: time.October},
	} {
		if _, err := s.CreateBudget(ctx, scopeA, b); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListBudgets(ctx, scopeA, 2026, time.October)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "oct" || got[0].Month != time.October {
		t.Fatalf("budgets = %+v", got)
	}
	if !got[0].AmountLimit.Equal(dec("500")) {
		t.Errorf("limit = %s", got[0].AmountLimit)
	}
}

func TestStore_GoalsWithOptionalDeadline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deadline := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.CreateGoal(ctx, scopeA, types.Goal{Name: "Viagem", TargetAmount: dec("5000"), TargetDate: &deadline}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateGoal(ctx, scopeA, types.Goal{Name: "Reserva", CurrentAmount: dec("100"), TargetAmount: dec("1000")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListGoals(ctx, scopeA)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("goals = %d, want 2", len(got))
	}
	byName := map[string]types.Goal{}
	for _, g := range got {
		byName[g.Name] = g
	}
	if d := byName["Viagem"].TargetDate; d == nil || !d.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", d, deadline)
	}
	if byName["Reserva"].TargetDate != nil {
		t.Error("goal without deadline should scan to nil")
	}
	if byName["Reserva"].CreatedAt.IsZero() {
		t.Error("created_at should default to now")
	}
}

func TestStore_Investments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateInvestment(ctx, scopeA, types.Investment{Name: "CDB", Amount: dec("1000"), ExpectedReturn: dec("10.5")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListInvestments(ctx, scopeA)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].ExpectedReturn.Equal(dec("10.5")) {
		t.Errorf("investments = %+v", got)
	}
	if other, _ := s.ListInvestments(ctx, scopeB); len(other) != 0 {
		t.Errorf("investments leaked across workspaces: %+v", other)
	}
}

func TestStore_ManualAlertsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	older := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	a1, err := s.CreateManualAlert(ctx, "u1", types.ManualAlert{Title: "Old", AlertType: "budget", Priority: "high", CreatedAt: older})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := s.CreateManualAlert(ctx, "u1", types.ManualAlert{Title: "New", AlertType: "weird", WorkspaceID: "personal", CreatedAt: older.AddDate(0, 0, 9)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateManualAlert(ctx, "u2", types.ManualAlert{Title: "Other user"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListManualAlerts(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != a2.ID {
		t.Fatalf("alerts = %+v, want newest first", got)
	}
	if got[0].AlertType != "weird" || got[0].WorkspaceID != "personal" {
		t.Errorf("raw values should round trip: %+v", got[0])
	}

	if err := s.MarkManualAlertRead(ctx, "u1", a1.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkManualAlertRead(ctx, "u2", a2.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user update: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteManualAlert(ctx, "u1", a2.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteManualAlert(ctx, "u1", a2.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	got, _ = s.ListManualAlerts(ctx, "u1")
	if len(got) != 1 || !got[0].IsRead {
		t.Errorf("alerts after mutations = %+v", got)
	}
}

func TestStore_MarkManualAlertsReadBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		a, err := s.CreateManualAlert(ctx, "u1", types.ManualAlert{Title: "a"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ID)
	}
	foreign, _ := s.CreateManualAlert(ctx, "u2", types.ManualAlert{Title: "b"})

	if err := s.MarkManualAlertsRead(ctx, "u1", append(ids[:2:2], foreign.ID)); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkManualAlertsRead(ctx, "u1", nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}

	got, _ := s.ListManualAlerts(ctx, "u1")
	read := 0
	for _, a := range got {
		if a.IsRead {
			read++
		}
	}
	if read != 2 {
		t.Errorf("read = %d, want 2", read)
	}
	other, _ := s.ListManualAlerts(ctx, "u2")
	if other[0].IsRead {
		t.Error("another user's alert was marked read")
	}
}

func TestStore_Challenges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, err := s.CreateChallenge(ctx, scopeA, types.NewChallenge{
		Title: "Cut Casa by 20%", TargetAmount: dec("170"), DurationDays: 30,
		IsAutomatic: true, SourceKey: "challenge-reduce-casa-24321",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ch.Status != types.ChallengeActive {
		t.Errorf("status = %s", ch.Status)
	}

	got, err := s.ListChallenges(ctx, scopeA)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SourceKey != "challenge-reduce-casa-24321" || !got[0].IsAutomatic {
		t.Fatalf("challenges = %+v", got)
	}
	if !got[0].TargetAmount.Equal(dec("170")) {
		t.Errorf("target = %s", got[0].TargetAmount)
	}

	if err := s.UpdateChallengeStatus(ctx, scopeA, ch.ID, types.ChallengeCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateChallengeStatus(ctx, scopeB, ch.ID, types.ChallengeAbandoned); !errors.Is(err, ErrNotFound) {
		t.Errorf("other workspace: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateChallengeStatus(ctx, scopeA, ch.ID, "paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}

	got, _ = s.ListChallenges(ctx, scopeA)
	if got[0].Status != types.ChallengeCompleted {
		t.Errorf("status = %s, want completed", got[0].Status)
	}
}

func TestStore_KeyValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, override.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Set(ctx, "overrides:read:u1:w1", []byte(`{"a":"x"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "overrides:read:u1:w1", []byte(`{"b":"y"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "overrides:dismissed:u1:w1", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "other:key", []byte(`1`)); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(ctx, "overrides:read:u1:w1")
	if err != nil || string(v) != `{"b":"y"}` {
		t.Errorf("Get = %q, %v", v, err)
	}

	keys, err := s.Keys(ctx, override.KeyPrefix)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"overrides:dismissed:u1:w1", "overrides:read:u1:w1"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	if err := s.Remove(ctx, "overrides:read:u1:w1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "overrides:read:u1:w1"); err != nil {
		t.Errorf("removing an absent key: %v", err)
	}
	if _, err := s.Get(ctx, "overrides:read:u1:w1"); !errors.Is(err, override.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after Remove, got %v", err)
	}
}

func TestStore_BacksOverrideStore(t *testing.T) {
	// Given: the override store persisting through SQLite
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	ov := override.NewStore(s, func() time.Time { return now })
	scope := types.Scope{UserID: "u1", WorkspaceID: "w1"}

	// When
	if err := ov.MarkDismissed(ctx, scope, "budget-exceeded-b1"); err != nil {
		t.Fatal(err)
	}

	// Then: a second override store over the same database sees it
	again := override.NewStore(s, time.Now)
	if !again.GetDismissed(ctx, scope).Has("budget-exceeded-b1") {
		t.Error("dismissal not persisted")
	}
}
