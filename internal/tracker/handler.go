package tracker

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
	"github.com/orderdesk/orderdesk/internal/snapshot"
)

// IdentityResolver extracts the authenticated caller from a request.
type IdentityResolver func(r *http.Request) (snapshot.Identity, bool)

// Handler exposes the engine's save/discard/status surface over JSON.
type Handler struct {
	logger   *slog.Logger
	manager  *Manager
	identity IdentityResolver
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, manager *Manager, identity IdentityResolver) *Handler {
	return &Handler{logger: logger, manager: manager, identity: identity}
}

// MountRoutes registers the engine routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/save", h.handleSave)
	r.Post("/discard", h.handleDiscard)
	r.Put("/autosave", h.handleAutoSave)
	r.Get("/status", h.handleStatus)
	r.Get("/notifications", h.handleNotifications)
	r.Post("/notifications/{id}/dismiss", h.handleDismiss)
	r.Post("/sync/retry", h.handleRetry)
}

// EngineFor resolves the caller's engine; it also satisfies the orders
// API's EngineProvider port.
func (h *Handler) EngineFor(r *http.Request) (*Engine, error) {
	id, ok := h.identity(r)
	if !ok {
		return nil, httpx.ErrUnauthorized
	}
	return h.manager.Engine(r.Context(), id)
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*Engine, bool) {
	eng, err := h.EngineFor(r)
	if err != nil {
		h.logger.Error("resolve engine", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return eng, true
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := eng.Save(); err != nil {
		h.logger.Error("save", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Save Failed", "local save failed")
		return
	}
	h.respondStatus(w, eng)
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.Discard()
	h.respondStatus(w, eng)
}

type autoSaveRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleAutoSave(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req autoSaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := eng.SetAutoSave(req.Enabled); err != nil {
		h.logger.Warn("persist autosave preference", slog.Any("error", err))
	}
	h.respondStatus(w, eng)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.respondStatus(w, eng)
}

func (h *Handler) respondStatus(w http.ResponseWriter, eng *Engine) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"dirty":      eng.Dirty(),
		"saveStatus": eng.State(),
		"autoSave":   eng.AutoSave(),
	})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	notes := eng.Notifications()
	if notes == nil {
		notes = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, notes)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.Dismiss(chi.URLParam(r, "id"))
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.RetrySync()
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "retrying"})
}
