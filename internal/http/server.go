// Package http exposes the budget over a JSON API for the Telegram Mini
// App frontend.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"fambudget/internal/cache"
	"fambudget/internal/ledger"
	applog "fambudget/internal/log"
	"fambudget/internal/middleware/ratelimit"
	"fambudget/internal/middleware/security"
	"fambudget/internal/middleware/trace"
	"fambudget/internal/tenancy"
)

// Publisher is the outbound event hook; nil disables eventing.
type Publisher interface {
	PublishApplied(ctx context.Context, t transactionEvent)
	PublishReversed(ctx context.Context, t transactionEvent)
}

type Server struct {
	http.Server

	engine    *ledger.Engine
	resolver  *tenancy.Resolver
	directory tenancy.Directory
	sessions  *tenancy.Sessions
	botToken  string
	publisher Publisher

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	logs        *applog.StructuredLogger

	// Overview responses are cached per workspace and invalidated on any
	// ledger mutation in that workspace.
	overviewCache *cache.LRUCache[ledger.Overview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// Options carries the wiring NewServer needs beyond the core engine.
type Options struct {
	Addr           string
	BotToken       string
	Sessions       *tenancy.Sessions
	Directory      tenancy.Directory
	Publisher      Publisher
	RequestsPerMin int
}

// NewServer configures the router and middleware chain, returning a
// ready-to-run server.
func NewServer(engine *ledger.Engine, resolver *tenancy.Resolver, opts Options) *Server {
	s := &Server{
		engine:        engine,
		resolver:      resolver,
		directory:     opts.Directory,
		sessions:      opts.Sessions,
		botToken:      opts.BotToken,
		publisher:     opts.Publisher,
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMin}),
		detector:      security.NewDetector(),
		overviewCache: cache.NewLRUCache[ledger.Overview](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentHTTP
	appLogger := applog.New(logCfg)
	s.logs = applog.NewStructuredLogger(appLogger)

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	secHeaders := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(applog.Middleware(appLogger))
	r.Use(applog.RequestIDMiddleware(requestID))
	r.Use(secHeaders.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*.telegram.org", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil))

		r.Post("/auth/telegram", s.handleTelegramLogin)

		// Workspace management only needs an authenticated user.
		r.Group(func(r chi.Router) {
			r.Use(s.withUser)
			r.Get("/workspaces", s.handleListWorkspaces)
			r.Post("/workspaces", s.handleCreateWorkspace)
			r.Post("/workspaces/{id}/switch", s.handleSwitchWorkspace)
			r.Post("/workspaces/{id}/members", s.handleInviteMember)
		})

		// Everything else runs under a resolved workspace scope.
		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Get("/overview", s.handleOverview)

			r.Get("/accounts", s.handleListAccounts)
			r.Post("/accounts", s.handleCreateAccount)
			r.Patch("/accounts/{id}/archive", s.handleArchiveAccount)
			r.Delete("/accounts/{id}", s.handleDeleteAccount)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/income-sources", s.handleListIncomeSources)
			r.Post("/income-sources", s.handleCreateIncomeSource)
			r.Delete("/income-sources/{id}", s.handleDeleteIncomeSource)

			r.Get("/goals", s.handleListGoals)
			r.Post("/goals", s.handleCreateGoal)
			r.Post("/goals/{id}/contributions", s.handleContributeToGoal)
			r.Delete("/goals/{id}", s.handleDeleteGoal)

			r.Get("/debtors", s.handleListDebtors)
			r.Post("/debtors", s.handleCreateDebtor)
			r.Post("/debtors/{id}/payments", s.handleRecordDebtPayment)
			r.Delete("/debtors/{id}", s.handleDeleteDebtor)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})
	})

	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Shutdown stops background routines and then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateOverview drops the cached overview after any ledger mutation.
func (s *Server) invalidateOverview(workspaceID string) {
	s.overviewCache.Delete(workspaceID)
}

// requestLogger emits one completion line per API request (the start line
// is Debug-only) and flags requests matching known probe patterns.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := s.detector.ExtractClientIP(r)
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method, "path", r.URL.Path, "client_ip", ip)
		}

		start := time.Now()
		s.logs.LogHTTPStart(r.Context(), r, ip)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logs.LogHTTPEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds(), ip)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
