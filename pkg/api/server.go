package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/config"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/rbac"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// Dependencies carries everything the API server needs. The caller
// owns the lifecycle of each dependency; the server only routes to them.
type Dependencies struct {
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	Orgs          orgs.Service
	Evaluator     *rbac.Evaluator
	Audit         audit.Logger
	AuditStore    *audit.Store
	Tokens        *auth.TokenStore
	Authenticator middleware.Authenticator
	Redis         *redis.Client
}

// Server wires middleware and handler groups onto a gorilla/mux router
type Server struct {
	cfg    *config.Config
	deps   Dependencies
	router *mux.Router
}

// NewServer builds the full /api/v1 routing tree
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{cfg: cfg, deps: deps, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root handler for the API listener
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(
		observability.RequestIDMiddleware,
		observability.LoggingMiddleware(s.deps.Logger),
		observability.RecoveryMiddleware(s.deps.Logger),
		s.deps.Metrics.Middleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxRequestBodyBytes),
	)
	if s.cfg.Observability.OTelEnabled {
		s.router.Use(observability.TracingMiddleware(s.cfg.Observability.OTelServiceName))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	invitations := NewInvitationHandlers(s.deps.Orgs, s.deps.Evaluator, s.deps.Audit, s.deps.Metrics, s.cfg.Invitations)
	orgHandlers := NewOrgHandlers(s.deps.Orgs, s.deps.Evaluator, s.deps.Audit)

	// Invitation details are readable before the invitee has an account.
	public := api.NewRoute().Subrouter()
	public.HandleFunc("/invitations/details", invitations.GetDetails).Methods("GET")

	protected := api.NewRoute().Subrouter()
	if s.cfg.RateLimit.Enabled {
		protected.Use(s.rateLimiter())
	}
	protected.Use(middleware.NewAuthMiddleware(s.deps.Authenticator, false).Handler)

	invitations.RegisterRoutes(protected)
	orgHandlers.RegisterRoutes(protected)
	rbac.NewHandlers(s.deps.Evaluator, s.deps.Metrics).RegisterRoutes(protected)
	if s.deps.AuditStore != nil {
		NewAuditHandlers(s.deps.AuditStore, s.deps.Evaluator).RegisterRoutes(protected)
	}
	if s.deps.Tokens != nil {
		NewTokenHandlers(s.deps.Tokens, s.deps.Audit).RegisterRoutes(protected)
	}
}

func (s *Server) rateLimiter() mux.MiddlewareFunc {
	userConfig := middleware.PerUserRateLimitConfig()
	userConfig.RequestsPerWindow = s.cfg.RateLimit.RequestsPerMinute
	if s.deps.Redis != nil {
		return middleware.NewDistributedRateLimitMiddleware(s.deps.Redis, userConfig).Handler
	}
	return middleware.NewRateLimitMiddleware(userConfig).Handler
}
