package insight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/types"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var (
	testNow   = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)
	testScope = types.Scope{UserID: "u1", WorkspaceID: "w1"}
	errBoom   = errors.New("backend unavailable")

	errNoChallenge = errors.New("challenge not found")
)

// --- Mock Implementations for Testing ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: testNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mockData implements DataSource.
type mockData struct {
	mu           sync.Mutex
	transactions []types.Transaction
	budgets      []types.Budget
	goals        []types.Goal
	investments  []types.Investment
	txErr        error
	budgetErr    error
	goalErr      error
	investErr    error
	txCalls      int
	delay        time.Duration
	// next, when set, replaces transactions after the first call.
	next []types.Transaction
}

func (m *mockData) ListTransactions(ctx context.Context, scope types.Scope, from, to time.Time) ([]types.Transaction, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	if m.txErr != nil {
		return nil, m.txErr
	}
	var out []types.Transaction
	for _, t := range m.transactions {
		if !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	if m.txCalls == 1 && m.next != nil {
		m.transactions = m.next
	}
	return out, nil
}

func (m *mockData) ListBudgets(ctx context.Context, scope types.Scope, year int, month time.Month) ([]types.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgets, m.budgetErr
}

func (m *mockData) ListGoals(ctx context.Context, scope types.Scope) ([]types.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goals, m.goalErr
}

func (m *mockData) ListInvestments(ctx context.Context, scope types.Scope) ([]types.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.investments, m.investErr
}

func (m *mockData) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCalls
}

func (m *mockData) add(txs ...types.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, txs...)
}

// mockAlerts implements AlertStore.
type mockAlerts struct {
	mu         sync.Mutex
	alerts     []types.ManualAlert
	listErr    error
	writeErr   error
	readCalls  []string
	batchCalls [][]string
	deleted    []string
	lastUserID string
}

func (m *mockAlerts) ListManualAlerts(ctx context.Context, userID string) ([]types.ManualAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]types.ManualAlert, len(m.alerts))
	copy(out, m.alerts)
	return out, nil
}

func (m *mockAlerts) MarkManualAlertRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUserID = userID
	if m.writeErr != nil {
		return m.writeErr
	}
	m.readCalls = append(m.readCalls, id)
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].IsRead = true
		}
	}
	return nil
}

func (m *mockAlerts) MarkManualAlertsRead(ctx context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUserID = userID
	if m.writeErr != nil {
		return m.writeErr
	}
	m.batchCalls = append(m.batchCalls, ids)
	for _, id := range ids {
		for i := range m.alerts {
			if m.alerts[i].ID == id {
				m.alerts[i].IsRead = true
			}
		}
	}
	return nil
}

func (m *mockAlerts) DeleteManualAlert(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUserID = userID
	if m.writeErr != nil {
		return m.writeErr
	}
	m.deleted = append(m.deleted, id)
	out := m.alerts[:0]
	for _, a := range m.alerts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	m.alerts = out
	return nil
}

// mockChallenges implements ChallengeStore.
type mockChallenges struct {
	mu        sync.Mutex
	items     []types.Challenge
	listErr   error
	createErr error
	created   []types.NewChallenge
}

func (m *mockChallenges) ListChallenges(ctx context.Context, scope types.Scope) ([]types.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items, nil
}

func (m *mockChallenges) CreateChallenge(ctx context.Context, scope types.Scope, c types.NewChallenge) (*types.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, c)
	ch := types.Challenge{
		ID:           ulid.Make().String(),
		Title:        c.Title,
		Description:  c.Description,
		TargetAmount: c.TargetAmount,
		DurationDays: c.DurationDays,
		IsAutomatic:  c.IsAutomatic,
		SourceKey:    c.SourceKey,
		Status:       types.ChallengeActive,
		CreatedAt:    testNow,
	}
	m.items = append(m.items, ch)
	return &ch, nil
}

func (m *mockChallenges) UpdateChallengeStatus(ctx context.Context, scope types.Scope, id string, status types.ChallengeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Status = status
			return nil
		}
	}
	return errNoChallenge
}

// kvSpy wraps a MemoryKV and can be switched to fail writes.
type kvSpy struct {
	*override.MemoryKV
	mu       sync.Mutex
	setCalls int
	failSet  bool
}

func (k *kvSpy) Set(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	k.setCalls++
	fail := k.failSet
	k.mu.Unlock()
	if fail {
		return errBoom
	}
	return k.MemoryKV.Set(ctx, key, value)
}

func (k *kvSpy) sets() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.setCalls
}

// --- Fixtures ---

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

func tx(typ types.TransactionType, amount, category string, date time.Time) types.Transaction {
	return types.Transaction{
		ID:       ulid.Make().String(),
		Type:     typ,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     date,
	}
}

type harness struct {
	clock      *fakeClock
	data       *mockData
	alerts     *mockAlerts
	challenges *mockChallenges
	kv         *kvSpy
	overrides  *override.Store
	agg        *Aggregator
	chal       *Challenges
	unified    *Unified
}

func newHarness() *harness {
	h := &harness{
		clock:      newFakeClock(),
		data:       &mockData{},
		alerts:     &mockAlerts{},
		challenges: &mockChallenges{},
		kv:         &kvSpy{MemoryKV: override.NewMemoryKV()},
	}
	h.overrides = override.NewStore(h.kv, h.clock.Now)
	h.agg = NewAggregator(h.data, h.alerts, h.overrides, Options{Now: h.clock.Now})
	h.chal = NewChallenges(h.agg, h.challenges, h.overrides)
	h.unified = NewUnified(h.agg, h.chal)
	return h
}

// withExceededBudget seeds a 500 Alimentação budget with 550 spent.
func (h *harness) withExceededBudget() *harness {
	h.data.add(
		tx(types.TransactionExpense, "550", "Alimentação", day(3)),
	)
	h.data.budgets = []types.Budget{{ID: "b1", Category: "Alimentação", AmountLimit: decimal.NewFromInt(500), Year: 2026, Month: time.October}}
	h.data.goals = []types.Goal{{ID: "g0", Name: "Reserva de emergência", CurrentAmount: decimal.NewFromInt(100), TargetAmount: decimal.NewFromInt(1000), CreatedAt: day(1)}}
	return h
}

func (h *harness) withManual(alerts ...types.ManualAlert) *harness {
	h.alerts.alerts = append(h.alerts.alerts, alerts...)
	return h
}

func ids(insights []types.Insight) []string {
	out := make([]string, len(insights))
	for i, in := range insights {
		out[i] = in.ID
	}
	return out
}

func find(insights []types.Insight, id string) (types.Insight, bool) {
	for _, in := range insights {
		if in.ID == id {
			return in, true
		}
	}
	return types.Insight{}, false
}
