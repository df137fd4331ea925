// Package api provides the JSON HTTP handlers for the grant toolkit.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cortex-grants/internal/domain"
	"cortex-grants/internal/service"
)

// Handler serves the REST endpoints backed by the analysis service.
type Handler struct {
	analysis *service.Analysis
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(analysis *service.Analysis, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analysis: analysis, logger: logger}
}

// Routes mounts all API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{role}/check", h.checkRole)
	r.Get("/agents", h.listAgents)
	r.Get("/agents/{database}/{schema}/{name}", h.analyzeAgent)
	r.Get("/agents/{database}/{schema}/{name}/script", h.agentScript)
	r.Get("/agents/{database}/{schema}/{name}/compatibility/{role}", h.checkCompatibility)
	r.Post("/refresh", h.refresh)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.analysis.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) checkRole(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.CheckRole(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roleReportDTO(report))
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.analysis.ListAgents(r.Context(),
		r.URL.Query().Get("database"), r.URL.Query().Get("schema"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]agentRef, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentRef{Database: a.Database, Schema: a.Schema, Name: a.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func agentFromURL(r *http.Request) domain.Agent {
	return domain.Agent{
		Database: chi.URLParam(r, "database"),
		Schema:   chi.URLParam(r, "schema"),
		Name:     chi.URLParam(r, "name"),
	}
}

func (h *Handler) analyzeAgent(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.AnalyzeAgent(r.Context(), agentFromURL(r), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agentReportDTO(report))
}

// agentScript returns the bootstrap script as a plain-text .sql download.
func (h *Handler) agentScript(w http.ResponseWriter, r *http.Request) {
	agent := agentFromURL(r)
	report, err := h.analysis.AnalyzeAgent(r.Context(), agent, r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("grant_%s.sql", agent.Name)))
	_, _ = w.Write([]byte(report.Script))
}

func (h *Handler) checkCompatibility(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.CheckCompatibility(r.Context(), chi.URLParam(r, "role"), agentFromURL(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, compatibilityDTO(report))
}

func (h *Handler) refresh(w http.ResponseWriter, _ *http.Request) {
	h.analysis.Refresh()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}
