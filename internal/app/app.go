// Package app provides application-level wiring for the grant toolkit.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"cortex-grants/internal/api"
	"cortex-grants/internal/config"
	"cortex-grants/internal/middleware"
	"cortex-grants/internal/render"
	"cortex-grants/internal/service"
	"cortex-grants/internal/ui"
)

// Deps holds the external dependencies that main() must provide: config, the
// metadata reader over the live Snowflake connection, and the logger.
type Deps struct {
	Cfg    *config.Config
	Reader service.MetadataReader
	Logger *slog.Logger
}

// App is the fully-wired application.
type App struct {
	Analysis *service.Analysis
	Renderer *render.Renderer
}

// New wires the renderer and analysis service from the provided deps.
func New(deps Deps) *App {
	renderer := render.New(render.Options{
		UseSessionVariables: deps.Cfg.UseSessionVariables,
		Warehouse:           deps.Cfg.ScriptWarehouse,
	})
	analysis := service.NewAnalysis(deps.Reader, renderer, deps.Cfg.CacheTTL, deps.Logger)
	return &App{Analysis: analysis, Renderer: renderer}
}

// Router builds the full HTTP router: middleware chain, JSON API under
// /api/v1, and the dashboard under /ui.
func (a *App) Router(cfg *config.Config, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Mount("/api/v1", api.NewHandler(a.Analysis, logger).Routes())

	uiHandler := ui.NewHandler(a.Analysis, logger)
	r.Route("/ui", func(r chi.Router) {
		ui.MountRoutes(r, uiHandler)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
	})
	return r
}
