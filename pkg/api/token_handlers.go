package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
)

// TokenHandlers provides HTTP handlers for API token management
type TokenHandlers struct {
	store *auth.TokenStore
	audit audit.Logger
}

// NewTokenHandlers creates token handlers
func NewTokenHandlers(store *auth.TokenStore, auditLogger audit.Logger) *TokenHandlers {
	return &TokenHandlers{store: store, audit: auditLogger}
}

// RegisterRoutes registers token routes on an authenticated router
func (h *TokenHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tokens", h.Create).Methods("POST")
	router.HandleFunc("/tokens/{id}", h.Revoke).Methods("DELETE")
}

type createTokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expires_in,omitempty"`
}

type createTokenResponse struct {
	Token    *auth.APIToken `json:"token"`
	TokenKey string         `json:"token_key"`
}

// Create issues a new API token for the caller. The plaintext token is
// returned once and never again.
func (h *TokenHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		ttl, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || ttl <= 0 {
			httputil.WriteValidationError(w, "expires_in must be a positive duration")
			return
		}
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	apiToken, plaintext, err := h.store.CreateToken(ctx, authCtx.User.ID, req.Name, expiresAt)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to create token")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		ActorID:  &authCtx.User.ID,
		Action:   audit.EventTypeTokenCreated,
		Resource: audit.ResourceTypeToken,
		RecordID: fmt.Sprintf("%d", apiToken.ID),
		Result:   audit.EventStatusSuccess,
		Metadata: map[string]interface{}{"name": apiToken.Name},
	})

	httputil.WriteCreated(w, &createTokenResponse{Token: apiToken, TokenKey: plaintext})
}

// Revoke revokes one of the caller's tokens
func (h *TokenHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	tokenID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.RevokeToken(ctx, tokenID, authCtx.User.ID); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			httputil.WriteNotFoundError(w, "token not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to revoke token")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		ActorID:  &authCtx.User.ID,
		Action:   audit.EventTypeTokenRevoked,
		Resource: audit.ResourceTypeToken,
		RecordID: fmt.Sprintf("%d", tokenID),
		Result:   audit.EventStatusSuccess,
	})

	httputil.WriteNoContent(w)
}
