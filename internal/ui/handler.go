// Package ui renders the read-only HTML dashboard.
package ui

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gomponents "maragu.dev/gomponents"

	"cortex-grants/internal/domain"
	"cortex-grants/internal/service"
)

// Handler serves the dashboard pages.
type Handler struct {
	analysis *service.Analysis
	logger   *slog.Logger
}

// NewHandler creates a UI Handler.
func NewHandler(analysis *service.Analysis, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analysis: analysis, logger: logger}
}

// MountRoutes mounts the dashboard under the given router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Home)
	r.Get("/roles", h.RolesList)
	r.Get("/roles/{role}", h.RoleDetail)
	r.Get("/agents", h.AgentsList)
	r.Get("/agents/{database}/{schema}/{name}", h.AgentDetail)
	r.Get("/agents/{database}/{schema}/{name}/compatibility", h.Compatibility)
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func (h *Handler) renderServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	title := "Unexpected Error"

	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var unavailable *domain.UnavailableError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		title = "Not Found"
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		title = "Invalid Request"
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
		title = "Snowflake Unavailable"
	default:
		h.logger.Error("dashboard page failed", "error", err)
	}
	renderHTML(w, status, errorPage(title, err.Error()))
}

func agentFromURL(r *http.Request) domain.Agent {
	return domain.Agent{
		Database: chi.URLParam(r, "database"),
		Schema:   chi.URLParam(r, "schema"),
		Name:     chi.URLParam(r, "name"),
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, overviewPage())
}

func (h *Handler) RolesList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.analysis.ListRoles(r.Context())
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, rolesPage(roles))
}

func (h *Handler) RoleDetail(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.CheckRole(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, roleDetailPage(report))
}

func (h *Handler) AgentsList(w http.ResponseWriter, r *http.Request) {
	agents, err := h.analysis.ListAgents(r.Context(),
		r.URL.Query().Get("database"), r.URL.Query().Get("schema"))
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, agentsPage(agents))
}

func (h *Handler) AgentDetail(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.AnalyzeAgent(r.Context(), agentFromURL(r), r.URL.Query().Get("role"))
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, agentDetailPage(report))
}

// Compatibility renders the role-vs-agent check. Without a role parameter it
// shows the role picker.
func (h *Handler) Compatibility(w http.ResponseWriter, r *http.Request) {
	agent := agentFromURL(r)
	role := r.URL.Query().Get("role")
	if role == "" {
		roles, err := h.analysis.ListRoles(r.Context())
		if err != nil {
			h.renderServiceError(w, err)
			return
		}
		renderHTML(w, http.StatusOK, compatibilityFormPage(agent, roles))
		return
	}
	report, err := h.analysis.CheckCompatibility(r.Context(), role, agent)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, compatibilityResultPage(report))
}
