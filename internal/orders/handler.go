package orders

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// EngineProvider resolves the caller's reconciliation engine. Implemented by
// the tracker manager through a thin adapter in the router wiring.
type EngineProvider interface {
	EngineFor(r *http.Request) (DraftEngine, error)
}

// DraftEngine is the slice of the reconciliation engine the orders API
// needs: reading and transforming the working copy.
type DraftEngine interface {
	Draft() Store
	SetDraft(update func(Store) Store)
}

// Handler exposes the entity and list operations over JSON.
type Handler struct {
	logger    *slog.Logger
	engines   EngineProvider
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, engines EngineProvider) *Handler {
	return &Handler{logger: logger, engines: engines, validator: validator.New()}
}

// MountRoutes registers the orders routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Get("/pos/view", h.handleView)

	r.Post("/trainings", h.handleCreateTraining)
	r.Put("/trainings/{id}", h.handleUpdateTraining)
	r.Delete("/trainings/{id}", h.handleDeleteTraining)

	r.Post("/customers", h.handleCreateCustomer)
	r.Put("/customers/{id}", h.handleUpdateCustomer)
	r.Delete("/customers/{id}", h.handleDeleteCustomer)

	r.Post("/producers", h.handleCreateProducer)
	r.Put("/producers/{id}", h.handleUpdateProducer)
	r.Delete("/producers/{id}", h.handleDeleteProducer)

	r.Post("/pos", h.handleCreatePO)
	r.Put("/pos/{id}", h.handleUpdatePO)
	r.Delete("/pos/{id}", h.handleDeletePO)
	r.Post("/pos/{id}/duplicate", h.handleDuplicatePO)
	r.Post("/pos/{id}/pay", h.handleMarkPaid)
	r.Post("/pos/reorder", h.handleReorder)

	r.Post("/pos/{id}/sessions", h.handleAddSession)
	r.Post("/pos/{id}/sessions/{sid}/duplicate", h.handleDuplicateSession)
	r.Post("/pos/{id}/sessions/{sid}/move", h.handleMoveSession)
	r.Delete("/pos/{id}/sessions/{sid}", h.handleDeleteSession)

	r.Get("/export", h.handleExport)
	r.Post("/import", h.handleImport)
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (DraftEngine, bool) {
	eng, err := h.engines.EngineFor(r)
	if err != nil {
		h.logger.Error("resolve engine", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return eng, true
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store": eng.Draft()})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := Filter{
		Query:       q.Get("query"),
		CustomerIDs: splitParam(q.Get("customers")),
		TrainingIDs: splitParam(q.Get("trainings")),
		DateFrom:    q.Get("dateFrom"),
		DateTo:      q.Get("dateTo"),
	}
	for _, s := range splitParam(q.Get("statuses")) {
		filter.Statuses = append(filter.Statuses, POStatus(s))
	}
	srt := Sort{Key: ParseSortKey(q.Get("sort")), Dir: SortDir(q.Get("dir"))}
	if srt.Dir == "" {
		srt.Dir = SortAsc
	}
	view := BuildView(eng.Draft(), filter, srt)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"view": view,
		// Manual drag ordering is only available when no sort key is active.
		"reorderEnabled": !srt.Active(),
	})
}

func splitParam(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type namePayload struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req namePayload
	if !h.decode(w, r, &req) {
		return
	}
	created := Training{ID: NewID(), Name: req.Name}
	eng.SetDraft(func(s Store) Store {
		s.Trainings = append(s.Trainings, created)
		return s
	})
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateTraining(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req namePayload
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.Trainings {
			if s.Trainings[i].ID == id {
				s.Trainings[i].Name = req.Name
				found = true
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, Training{ID: id, Name: req.Name})
}

func (h *Handler) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	// No cascading delete: POs keep the dangling id and render a placeholder.
	eng.SetDraft(func(s Store) Store {
		kept := s.Trainings[:0]
		for _, t := range s.Trainings {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		s.Trainings = kept
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req namePayload
	if !h.decode(w, r, &req) {
		return
	}
	created := Customer{ID: NewID(), Name: req.Name}
	eng.SetDraft(func(s Store) Store {
		s.Customers = append(s.Customers, created)
		return s
	})
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req namePayload
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.Customers {
			if s.Customers[i].ID == id {
				s.Customers[i].Name = req.Name
				found = true
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, Customer{ID: id, Name: req.Name})
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	eng.SetDraft(func(s Store) Store {
		kept := s.Customers[:0]
		for _, c := range s.Customers {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		s.Customers = kept
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// producerPayload carries rates as strings so both comma and dot decimal
// separators are accepted, matching the editor inputs.
type producerPayload struct {
	Name   string `json:"name" validate:"required"`
	Rate   string `json:"rate"`
	Markup string `json:"markup"`
}

func (h *Handler) handleCreateProducer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req producerPayload
	if !h.decode(w, r, &req) {
		return
	}
	created := Producer{ID: NewID(), Name: req.Name, Rate: ParseNumber(req.Rate), Markup: ParseNumber(req.Markup)}
	eng.SetDraft(func(s Store) Store {
		s.Producers = append(s.Producers, created)
		return s
	})
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateProducer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req producerPayload
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	updated := Producer{ID: id, Name: req.Name, Rate: ParseNumber(req.Rate), Markup: ParseNumber(req.Markup)}
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.Producers {
			if s.Producers[i].ID == id {
				s.Producers[i] = updated
				found = true
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteProducer(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	eng.SetDraft(func(s Store) Store {
		kept := s.Producers[:0]
		for _, p := range s.Producers {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		s.Producers = kept
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleCreatePO(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	created := PO{ID: NewID(), Status: POStatusDraft, Sessions: []Session{}}
	eng.SetDraft(func(s Store) Store {
		s.POs = append([]PO{created}, s.POs...)
		return s
	})
	httpx.JSON(w, http.StatusCreated, created)
}

type poResponse struct {
	PO PO `json:"po"`
	// Soft warning only: duplicate numbers are allowed to exist.
	DuplicateNumber bool `json:"duplicateNumber"`
}

func (h *Handler) handleUpdatePO(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req PO
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id := chi.URLParam(r, "id")
	req.ID = id
	req = req.Sanitize()
	found := false
	duplicate := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID == id {
				// Staged editor copy applied atomically; ids are immutable.
				s.POs[i] = req
				found = true
			}
		}
		duplicate = s.DuplicatePONumber(req.PONumber, id)
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, poResponse{PO: req, DuplicateNumber: duplicate})
}

func (h *Handler) handleDeletePO(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	eng.SetDraft(func(s Store) Store {
		kept := s.POs[:0]
		for _, po := range s.POs {
			if po.ID != id {
				kept = append(kept, po)
			}
		}
		s.POs = kept
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleDuplicatePO(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var dup PO
	var dupErr error
	eng.SetDraft(func(s Store) Store {
		dup, dupErr = s.DuplicatePO(id)
		return s
	})
	if dupErr != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusCreated, dup)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID == id {
				s.POs[i].Status = POStatusPaid
				found = true
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(POStatusPaid)})
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	eng.SetDraft(func(s Store) Store {
		s.MovePO(req.From, req.To)
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleAddSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	created := Session{ID: NewID(), Date: Today(), Units: 1}
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID == id {
				s.POs[i].Sessions = append(s.POs[i].Sessions, created)
				found = true
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDuplicateSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sid := chi.URLParam(r, "sid")
	var dup Session
	found := false
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID != id {
				continue
			}
			for j, sess := range s.POs[i].Sessions {
				if sess.ID == sid {
					dup = sess
					dup.ID = NewID()
					dup.Date = AddDays(sess.Date, 7)
					rest := s.POs[i].Sessions
					s.POs[i].Sessions = append(append(append([]Session(nil), rest[:j+1]...), dup), rest[j+1:]...)
					found = true
					break
				}
			}
		}
		return s
	})
	if !found {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusCreated, dup)
}

type moveSessionRequest struct {
	To int `json:"to"`
}

func (h *Handler) handleMoveSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req moveSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id := chi.URLParam(r, "id")
	sid := chi.URLParam(r, "sid")
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID != id {
				continue
			}
			sessions := s.POs[i].Sessions
			from := -1
			for j, sess := range sessions {
				if sess.ID == sid {
					from = j
					break
				}
			}
			if from < 0 || req.To < 0 || req.To >= len(sessions) || from == req.To {
				return s
			}
			moved := sessions[from]
			rest := append(append([]Session(nil), sessions[:from]...), sessions[from+1:]...)
			s.POs[i].Sessions = append(append(append([]Session(nil), rest[:req.To]...), moved), rest[req.To:]...)
		}
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sid := chi.URLParam(r, "sid")
	eng.SetDraft(func(s Store) Store {
		for i := range s.POs {
			if s.POs[i].ID != id {
				continue
			}
			kept := s.POs[i].Sessions[:0]
			for _, sess := range s.POs[i].Sessions {
				if sess.ID != sid {
					kept = append(kept, sess)
				}
			}
			s.POs[i].Sessions = kept
		}
		return s
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	data, err := Export(eng.Draft())
	if err != nil {
		h.logger.Error("export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Import Failed", err.Error())
		return
	}
	store, err := Import(raw)
	if err != nil {
		// The draft stays untouched on any import failure.
		httpx.Problem(w, http.StatusBadRequest, "Import Failed", err.Error())
		return
	}
	// Imported data replaces the draft only; the user still saves explicitly.
	eng.SetDraft(func(Store) Store {
		return store
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	return true
}
