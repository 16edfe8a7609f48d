// Package api exposes the budget engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/budget"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/store"
)

// Calculator computes budgets.
type Calculator interface {
	Calculate(ctx context.Context, req budget.Request) (*budget.Outcome, error)
}

// Inferrer fills gaps in a briefing.
type Inferrer interface {
	Apply(dados model.BriefingExtraction) model.FallbackResult
}

// Configs reads and replaces tenant configurations.
type Configs interface {
	Get(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error)
	Put(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) ([]string, error)
}

// Budgets persists computed budgets.
type Budgets interface {
	SaveBudget(ctx context.Context, rec *model.BudgetRecord) error
	GetBudget(ctx context.Context, id string) (*model.BudgetRecord, error)
	ListBudgets(ctx context.Context, filter store.BudgetFilter) ([]model.BudgetRecord, error)
	UpdateBudgetStatus(ctx context.Context, id string, to model.Status) (*model.BudgetRecord, error)
}

// Options tune the HTTP surface.
type Options struct {
	// RateLimit is the sustained requests per second allowed per tenant.
	// Zero disables limiting.
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server wires handlers to their collaborators.
type Server struct {
	calc     Calculator
	inferrer Inferrer
	configs  Configs
	budgets  Budgets
	opts     Options
	limiter  *tenantLimiter
}

// NewServer creates a Server.
func NewServer(calc Calculator, inferrer Inferrer, configs Configs, budgets Budgets, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		calc:     calc,
		inferrer: inferrer,
		configs:  configs,
		budgets:  budgets,
		opts:     opts,
	}
	if opts.RateLimit > 0 {
		s.limiter = newTenantLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/escritorios/{escritorioID}", func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/orcamentos", s.createBudget)
			r.Get("/orcamentos", s.listBudgets)
			r.Post("/fallback", s.applyFallback)
			r.Get("/configuracao", s.getConfig)
			r.Put("/configuracao", s.putConfig)
		})
		r.Get("/orcamentos/{id}", s.getBudget)
		r.Patch("/orcamentos/{id}/status", s.updateStatus)
		r.Get("/orcamentos/{id}/planilha", s.exportBudget)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
