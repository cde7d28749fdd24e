package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/finsight/internal/assistant"
	"github.com/hyperengineering/finsight/internal/insight"
	"github.com/hyperengineering/finsight/internal/types"
)

// Handler implements the API handlers
type Handler struct {
	unified   *insight.Unified
	alerts    *insight.Aggregator
	assistant assistant.Assistant
	apiKey    string
	version   string
}

// NewHandler creates a Handler over the insight services.
func NewHandler(u *insight.Unified, a *insight.Aggregator, asst assistant.Assistant, apiKey, version string) *Handler {
	if asst == nil {
		asst = assistant.Noop{}
	}
	return &Handler{
		unified:   u,
		alerts:    a,
		assistant: asst,
		apiKey:    apiKey,
		version:   version,
	}
}

// AlertsResponse is returned by the alert feed endpoints.
type AlertsResponse struct {
	Items       []types.Insight `json:"items"`
	UnreadCount int             `json:"unread_count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "disabled"
	if h.assistant.Enabled() {
		status = "enabled"
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Assistant: status,
	})
}

// GetInsights handles GET /api/v1/insights
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	filter, err := insight.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		MapError(w, r, err)
		return
	}

	feed, err := h.unified.Feed(r.Context(), MustScopeFromContext(r.Context()), filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// GetAlerts handles GET /api/v1/alerts
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.alerts.Fetch(r.Context(), MustScopeFromContext(r.Context()))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse(items))
}

// RefreshAlerts handles POST /api/v1/alerts/refresh
func (h *Handler) RefreshAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.alerts.Refetch(r.Context(), MustScopeFromContext(r.Context()))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse(items))
}

func alertsResponse(items []types.Insight) AlertsResponse {
	resp := AlertsResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []types.Insight{}
	}
	for _, in := range items {
		if !in.IsRead {
			resp.UnreadCount++
		}
	}
	return resp
}

// MarkAlertRead handles POST /api/v1/alerts/{id}/read
func (h *Handler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.alerts.MarkAsRead(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// DeleteAlert handles DELETE /api/v1/alerts/{id}
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.alerts.Delete(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// MarkAllAlertsRead handles POST /api/v1/alerts/read-all
func (h *Handler) MarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.alerts.MarkAllRead(r.Context(), MustScopeFromContext(r.Context())))
}

// MarkInsightRead handles POST /api/v1/insights/{id}/read
func (h *Handler) MarkInsightRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.MarkAsRead(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// DeleteInsight handles DELETE /api/v1/insights/{id}
func (h *Handler) DeleteInsight(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.Delete(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// MarkAllInsightsRead handles POST /api/v1/insights/read-all
func (h *Handler) MarkAllInsightsRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.MarkAllRead(r.Context(), MustScopeFromContext(r.Context())))
}

// RefreshInsights handles POST /api/v1/insights/refresh
func (h *Handler) RefreshInsights(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.Refetch(r.Context(), MustScopeFromContext(r.Context())))
}

func (h *Handler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptSuggestion handles POST /api/v1/suggestions/{id}/accept
func (h *Handler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFromContext(r.Context())
	id := chi.URLParam(r, "id")

	ch, err := h.unified.AcceptSuggestion(r.Context(), scope, id)
	if err != nil {
		MapError(w, r, err)
		return
	}

	slog.Info("suggestion accepted",
		"component", "api",
		"user_id", scope.UserID,
		"suggestion_id", id,
		"challenge_id", ch.ID,
	)
	writeJSON(w, http.StatusCreated, ch)
}

// ChallengesResponse is returned by GET /api/v1/challenges.
type ChallengesResponse struct {
	Items []types.Challenge `json:"items"`
}

// ListChallenges handles GET /api/v1/challenges
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	items, err := h.unified.Challenges().List(r.Context(), MustScopeFromContext(r.Context()))
	if err != nil {
		MapError(w, r, err)
		return
	}
	if items == nil {
		items = []types.Challenge{}
	}
	writeJSON(w, http.StatusOK, ChallengesResponse{Items: items})
}

// CompleteChallenge handles POST /api/v1/challenges/{id}/complete
func (h *Handler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.Challenges().Complete(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// AbandonChallenge handles POST /api/v1/challenges/{id}/abandon
func (h *Handler) AbandonChallenge(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.unified.Challenges().Abandon(r.Context(), MustScopeFromContext(r.Context()), chi.URLParam(r, "id")))
}

// Digest handles GET /api/v1/insights/digest
func (h *Handler) Digest(w http.ResponseWriter, r *http.Request) {
	if !h.assistant.Enabled() {
		MapError(w, r, assistant.ErrDisabled)
		return
	}

	feed, err := h.unified.Feed(r.Context(), MustScopeFromContext(r.Context()), insight.FilterAll)
	if err != nil {
		MapError(w, r, err)
		return
	}

	d, err := h.assistant.Summarize(r.Context(), feed.Items)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
