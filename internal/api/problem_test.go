package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperengineering/finsight/internal/assistant"
	"github.com/hyperengineering/finsight/internal/insight"
	"github.com/hyperengineering/finsight/internal/store"
	"github.com/hyperengineering/finsight/internal/validation"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response as RFC 7807: %v", err)
	}
	return p
}

func TestWriteProblem_BodyFormat(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)

	WriteProblem(w, r, http.StatusUnauthorized, "Missing or invalid API key")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", ct)
	}

	p := decodeProblem(t, w)
	if p.Type != "https://finsight.dev/errors/unauthorized" {
		t.Errorf("type = %v", p.Type)
	}
	if p.Title != "Unauthorized" || p.Status != 401 {
		t.Errorf("title/status = %v/%d", p.Title, p.Status)
	}
	if p.Detail != "Missing or invalid API key" {
		t.Errorf("detail = %v", p.Detail)
	}
	if p.Instance != "/api/v1/insights" {
		t.Errorf("instance = %v, want /api/v1/insights", p.Instance)
	}
}

func TestWriteProblem_TypeURIs(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "https://finsight.dev/errors/bad-request"},
		{http.StatusNotFound, "https://finsight.dev/errors/not-found"},
		{http.StatusConflict, "https://finsight.dev/errors/conflict"},
		{http.StatusUnprocessableEntity, "https://finsight.dev/errors/validation-error"},
		{http.StatusTooManyRequests, "https://finsight.dev/errors/rate-limit"},
		{http.StatusServiceUnavailable, "https://finsight.dev/errors/service-unavailable"},
		{http.StatusTeapot, "https://finsight.dev/errors/unknown"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)

			WriteProblem(w, r, tt.status, "detail")

			if p := decodeProblem(t, w); p.Type != tt.want {
				t.Errorf("type = %v, want %v", p.Type, tt.want)
			}
		})
	}
}

func TestWriteProblemWithErrors_422(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)
	errs := []validation.ValidationError{{Field: "user_id", Message: "is required"}}

	WriteProblemWithErrors(w, r, "Request scope is invalid", errs)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(p.Errors) != 1 || p.Errors[0].Field != "user_id" {
		t.Errorf("errors = %+v", p.Errors)
	}
	if p.Type != "https://finsight.dev/errors/validation-error" {
		t.Errorf("type = %v", p.Type)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"insight not found", insight.ErrInsightNotFound, http.StatusNotFound},
		{"row not found", fmt.Errorf("mark read: %w", store.ErrNotFound), http.StatusNotFound},
		{"not dismissable", insight.ErrNotDismissable, http.StatusConflict},
		{"no read state", insight.ErrNoReadState, http.StatusConflict},
		{"invalid filter", insight.ErrInvalidFilter, http.StatusBadRequest},
		{"assistant disabled", assistant.ErrDisabled, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/x/read", nil)

			MapError(w, r, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			p := decodeProblem(t, w)
			if p.Status != tt.status {
				t.Errorf("body status = %d, want %d", p.Status, tt.status)
			}
		})
	}
}

func TestMapError_UnknownDoesNotLeak(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)

	MapError(w, r, errors.New("sqlite: database is locked at /var/lib/finsight.db"))

	if p := decodeProblem(t, w); p.Detail != "Internal Server Error" {
		t.Errorf("detail = %v, want 'Internal Server Error' (no leak)", p.Detail)
	}
}
