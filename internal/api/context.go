package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/hyperengineering/finsight/internal/validation"
)

const (
	HeaderUserID      = "X-User-ID"
	HeaderWorkspaceID = "X-Workspace-ID"
)

// scopeContextKey is the context key for the request scope.
type scopeContextKey struct{}

// ErrNoScopeInContext indicates no scope was found in the context.
var ErrNoScopeInContext = errors.New("no scope in context")

// WithScope returns a new context with the scope attached.
func WithScope(ctx context.Context, scope types.Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope from the context.
func ScopeFromContext(ctx context.Context) (types.Scope, error) {
	scope, ok := ctx.Value(scopeContextKey{}).(types.Scope)
	if !ok {
		return types.Scope{}, ErrNoScopeInContext
	}
	return scope, nil
}

// MustScopeFromContext extracts the scope or panics.
// Use only when ScopeMiddleware guarantees scope presence.
func MustScopeFromContext(ctx context.Context) types.Scope {
	scope, err := ScopeFromContext(ctx)
	if err != nil {
		panic("scope not in context: middleware misconfiguration")
	}
	return scope
}

// ScopeMiddleware resolves the user and workspace of a request from its
// headers. Invalid or missing ids are rejected with 422.
func ScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := types.Scope{
			UserID:      r.Header.Get(HeaderUserID),
			WorkspaceID: r.Header.Get(HeaderWorkspaceID),
		}
		if errs := validation.ValidateScope(scope); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "Request scope is invalid", errs)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
	})
}
