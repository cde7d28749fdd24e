package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hyperengineering/finsight/internal/assistant"
	"github.com/hyperengineering/finsight/internal/insight"
	"github.com/hyperengineering/finsight/internal/override"
	"github.com/hyperengineering/finsight/internal/store"
	"github.com/hyperengineering/finsight/internal/types"
)

var (
	testNow   = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)
	testScope = types.Scope{UserID: "u1", WorkspaceID: "w1"}
	monthKey  = strconv.Itoa(types.MonthIndex(testNow))
)

// mockAssistant implements assistant.Assistant for testing
type mockAssistant struct {
	enabled   bool
	lastItems []types.Insight
}

func (m *mockAssistant) Summarize(ctx context.Context, items []types.Insight) (*assistant.Digest, error) {
	m.lastItems = items
	return &assistant.Digest{Summary: "All good.", Model: "test-model", ItemCount: len(items), GeneratedAt: testNow}, nil
}

func (m *mockAssistant) ModelName() string { return "test-model" }
func (m *mockAssistant) Enabled() bool     { return m.enabled }

// testServer wires the real insight services over an in-memory SQLite store.
type testServer struct {
	store  *store.SQLiteStore
	router http.Handler
}

func newTestServer(t *testing.T, asst assistant.Assistant) *testServer {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	now := func() time.Time { return testNow }
	overrides := override.NewStore(s, now)
	agg := insight.NewAggregator(s, s, overrides, insight.Options{CacheTTL: insight.DefaultCacheTTL, Now: now})
	unified := insight.NewUnified(agg, insight.NewChallenges(agg, s, overrides))

	h := NewHandler(unified, agg, asst, testAPIKey, "1.2.3")
	return &testServer{store: s, router: NewRouter(h)}
}

// seedHousingMonth stores income 1000, a single 850 expense in Casa and one
// unread manual alert m1.
func (ts *testServer) seedHousingMonth(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	rows := []types.Transaction{
		{Type: types.TransactionIncome, Amount: decimal.NewFromInt(1000), Category: "Salário", Date: testNow.AddDate(0, 0, -14)},
		{Type: types.TransactionExpense, Amount: decimal.NewFromInt(850), Category: "Casa", Date: testNow.AddDate(0, 0, -10)},
	}
	for _, tx := range rows {
		if _, err := ts.store.CreateTransaction(ctx, testScope, tx); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
	if _, err := ts.store.CreateManualAlert(ctx, testScope.UserID, types.ManualAlert{
		ID: "m1", Title: "Rent due", AlertType: "reminder", Priority: "medium", CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("seed alert: %v", err)
	}
}

func (ts *testServer) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(HeaderUserID, testScope.UserID)
	req.Header.Set(HeaderWorkspaceID, testScope.WorkspaceID)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func itemIDs(items []types.Insight) []string {
	out := make([]string, len(items))
	for i, in := range items {
		out[i] = in.ID
	}
	return out
}

func containsID(items []types.Insight, id string) bool {
	for _, in := range items {
		if in.ID == id {
			return true
		}
	}
	return false
}

// --- Health Endpoint Tests ---

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    string
	}{
		{"assistant disabled", false, "disabled"},
		{"assistant enabled", true, "enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &mockAssistant{enabled: tt.enabled})

			// No auth or scope headers
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			resp := decodeJSON[types.HealthResponse](t, w)
			if resp.Status != "healthy" || resp.Version != "1.2.3" || resp.Assistant != tt.want {
				t.Errorf("health = %+v", resp)
			}
		})
	}
}

func TestProtectedRoutes_RequireAuthAndScope(t *testing.T) {
	ts := newTestServer(t, nil)

	// Given no Authorization header
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", w.Code)
	}

	// Given auth but no scope headers
	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("no scope: status = %d, want 422", w.Code)
	}
}

// --- Insight Feed Tests ---

func TestGetInsights_UnifiedFeed(t *testing.T) {
	// Given
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	// When
	w := ts.do(t, http.MethodGet, "/api/v1/insights")

	// Then
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	feed := decodeJSON[insight.Feed](t, w)
	want := []string{
		"tip-emergency-fund",
		"m1",
		"tip-create-budgets-" + monthKey,
		"tip-concentration-" + monthKey,
		"tip-start-investing",
		"challenge-reduce-casa-" + monthKey,
	}
	if len(feed.Items) != len(want) {
		t.Fatalf("items = %v, want %v", itemIDs(feed.Items), want)
	}
	for _, id := range want {
		if !containsID(feed.Items, id) {
			t.Errorf("feed missing %s", id)
		}
	}
	if feed.Filter != insight.FilterAll || feed.UnreadCount != 2 || feed.Counts.Total != 6 {
		t.Errorf("filter = %q, unread = %d, total = %d", feed.Filter, feed.UnreadCount, feed.Counts.Total)
	}
}

func TestGetInsights_Filter(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	tests := []struct {
		filter string
		want   int
	}{
		{"alert", 2},
		{"tip", 3},
		{"challenge", 1},
		{"ALL", 6},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/v1/insights?filter="+tt.filter)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			feed := decodeJSON[insight.Feed](t, w)
			if len(feed.Items) != tt.want {
				t.Errorf("items = %v, want %d", itemIDs(feed.Items), tt.want)
			}
			if feed.Counts.Total != 6 {
				t.Errorf("counts are computed before filtering, total = %d", feed.Counts.Total)
			}
		})
	}
}

func TestGetInsights_UnknownFilter(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/v1/insights?filter=bogus")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetInsights_EmptyItemsNotNull(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/v1/insights?filter=challenge")

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["items"]) != "[]" {
		t.Errorf("items = %s, want []", raw["items"])
	}
}

// --- Alert Tests ---

func TestAlerts_MarkReadRoundTrip(t *testing.T) {
	// Given
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	w := ts.do(t, http.MethodGet, "/api/v1/alerts")
	before := decodeJSON[AlertsResponse](t, w)
	if len(before.Items) != 2 || before.UnreadCount != 2 {
		t.Fatalf("before = %v unread %d", itemIDs(before.Items), before.UnreadCount)
	}

	// When
	if w := ts.do(t, http.MethodPost, "/api/v1/alerts/m1/read"); w.Code != http.StatusNoContent {
		t.Fatalf("mark m1: status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/alerts/tip-emergency-fund/read"); w.Code != http.StatusNoContent {
		t.Fatalf("mark automatic: status = %d", w.Code)
	}

	// Then the refreshed feed, read from storage, agrees
	after := decodeJSON[AlertsResponse](t, ts.do(t, http.MethodPost, "/api/v1/alerts/refresh"))
	if after.UnreadCount != 0 || len(after.Items) != 2 {
		t.Errorf("after = %v unread %d", itemIDs(after.Items), after.UnreadCount)
	}
}

func TestAlerts_MarkAllRead(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	if w := ts.do(t, http.MethodPost, "/api/v1/alerts/read-all"); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeJSON[AlertsResponse](t, ts.do(t, http.MethodPost, "/api/v1/alerts/refresh"))
	if resp.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", resp.UnreadCount)
	}
}

func TestAlerts_Delete(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	if w := ts.do(t, http.MethodDelete, "/api/v1/alerts/tip-emergency-fund"); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/api/v1/alerts/m1"); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeJSON[AlertsResponse](t, ts.do(t, http.MethodPost, "/api/v1/alerts/refresh"))
	if len(resp.Items) != 0 {
		t.Errorf("items = %v, want none", itemIDs(resp.Items))
	}
}

func TestAlerts_UnknownID(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		path := "/api/v1/alerts/nope"
		if method == http.MethodPost {
			path += "/read"
		}
		if w := ts.do(t, method, path); w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", method, path, w.Code)
		}
	}
}

func TestAlerts_OtherUserCannotTouch(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/m1/read", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(HeaderUserID, "intruder")
	req.Header.Set(HeaderWorkspaceID, testScope.WorkspaceID)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// --- Unified Mutation Tests ---

func TestInsights_TipsHaveNoReadStateAndCannotBeDismissed(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	if w := ts.do(t, http.MethodPost, "/api/v1/insights/tip-start-investing/read"); w.Code != http.StatusConflict {
		t.Errorf("read tip: status = %d, want 409", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/api/v1/insights/tip-start-investing"); w.Code != http.StatusConflict {
		t.Errorf("delete tip: status = %d, want 409", w.Code)
	}
}

func TestInsights_DismissSuggestion(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)
	id := "challenge-reduce-casa-" + monthKey

	if w := ts.do(t, http.MethodDelete, "/api/v1/insights/"+id); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	feed := decodeJSON[insight.Feed](t, ts.do(t, http.MethodGet, "/api/v1/insights?filter=challenge"))
	if len(feed.Items) != 0 {
		t.Errorf("dismissed suggestion still listed: %v", itemIDs(feed.Items))
	}
}

func TestInsights_MarkAllReadAndRefresh(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	if w := ts.do(t, http.MethodPost, "/api/v1/insights/read-all"); w.Code != http.StatusNoContent {
		t.Fatalf("read-all: status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/insights/refresh"); w.Code != http.StatusNoContent {
		t.Fatalf("refresh: status = %d", w.Code)
	}

	feed := decodeJSON[insight.Feed](t, ts.do(t, http.MethodGet, "/api/v1/insights"))
	if feed.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", feed.UnreadCount)
	}
}

// --- Suggestion Tests ---

func TestAcceptSuggestion(t *testing.T) {
	// Given
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)
	id := "challenge-reduce-casa-" + monthKey

	// When
	w := ts.do(t, http.MethodPost, "/api/v1/suggestions/"+id+"/accept")

	// Then
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	ch := decodeJSON[types.Challenge](t, w)
	if ch.ID == "" || ch.SourceKey != id || !ch.IsAutomatic || ch.Status != types.ChallengeActive {
		t.Errorf("challenge = %+v", ch)
	}

	stored, err := ts.store.ListChallenges(context.Background(), testScope)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored challenges = %v, err = %v", stored, err)
	}

	// And the suggestion is no longer offered
	if w := ts.do(t, http.MethodPost, "/api/v1/suggestions/"+id+"/accept"); w.Code != http.StatusNotFound {
		t.Errorf("second accept: status = %d, want 404", w.Code)
	}
}

func TestChallenges_CompleteReoffersSuggestion(t *testing.T) {
	// Given: an accepted suggestion
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)
	id := "challenge-reduce-casa-" + monthKey
	w := ts.do(t, http.MethodPost, "/api/v1/suggestions/"+id+"/accept")
	if w.Code != http.StatusCreated {
		t.Fatalf("accept: status = %d, body = %s", w.Code, w.Body.String())
	}
	ch := decodeJSON[types.Challenge](t, w)

	// When
	w = ts.do(t, http.MethodPost, "/api/v1/challenges/"+ch.ID+"/complete")

	// Then
	if w.Code != http.StatusNoContent {
		t.Fatalf("complete: status = %d, body = %s", w.Code, w.Body.String())
	}
	list := decodeJSON[ChallengesResponse](t, ts.do(t, http.MethodGet, "/api/v1/challenges"))
	if len(list.Items) != 1 || list.Items[0].Status != types.ChallengeCompleted {
		t.Errorf("challenges = %+v", list.Items)
	}
	feed := decodeJSON[insight.Feed](t, ts.do(t, http.MethodGet, "/api/v1/insights?filter=challenge"))
	if !containsID(feed.Items, id) {
		t.Errorf("completed challenge should free its suggestion, got %v", itemIDs(feed.Items))
	}
}

func TestChallenges_UnknownIDAndEmptyList(t *testing.T) {
	ts := newTestServer(t, nil)

	if w := ts.do(t, http.MethodPost, "/api/v1/challenges/nope/abandon"); w.Code != http.StatusNotFound {
		t.Errorf("abandon unknown: status = %d, want 404", w.Code)
	}
	w := ts.do(t, http.MethodGet, "/api/v1/challenges")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("list: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAcceptSuggestion_NotASuggestion(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedHousingMonth(t)

	if w := ts.do(t, http.MethodPost, "/api/v1/suggestions/m1/accept"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// --- Digest Tests ---

func TestDigest_DisabledReturns503(t *testing.T) {
	ts := newTestServer(t, assistant.Noop{})

	w := ts.do(t, http.MethodGet, "/api/v1/insights/digest")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDigest_SummarizesWholeFeed(t *testing.T) {
	asst := &mockAssistant{enabled: true}
	ts := newTestServer(t, asst)
	ts.seedHousingMonth(t)

	w := ts.do(t, http.MethodGet, "/api/v1/insights/digest")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	d := decodeJSON[assistant.Digest](t, w)
	if d.Summary != "All good." || d.ItemCount != 6 {
		t.Errorf("digest = %+v", d)
	}
	if len(asst.lastItems) != 6 {
		t.Errorf("assistant saw %d items, want 6", len(asst.lastItems))
	}
}
