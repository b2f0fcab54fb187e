package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tiffindesk/api/internal/session"
	"go.uber.org/zap"
)

// SessionDashboards exposes the shift tallies. Satisfied by *session.Dashboards.
type SessionDashboards interface {
	Snapshot() session.Snapshot
	Clear() error
}

// DashboardHandler serves the session cooking and packaging tallies.
type DashboardHandler struct {
	session SessionDashboards
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(s SessionDashboards, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{session: s, logger: logger}
}

// RegisterRoutes registers dashboard reads. Expected under /dashboards.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.Get)
}

// RegisterWriteRoutes registers the session reset. Expected under /dashboards.
func (h *DashboardHandler) RegisterWriteRoutes(r chi.Router) {
	r.Delete("/session", h.Clear)
}

// Get returns the tallies of every order confirmed since the last clear.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Clear resets the tallies. Stored orders are not touched.
func (h *DashboardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(); err != nil {
		writeError(w, h.logger, "clear session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
