package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu    sync.Mutex
	store Store
}

func (f *fakeEngine) Draft() Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store.Clone()
}

func (f *fakeEngine) SetDraft(update func(Store) Store) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = update(f.store.Clone())
}

type fakeProvider struct {
	engine *fakeEngine
	err    error
}

func (f *fakeProvider) EngineFor(*http.Request) (DraftEngine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.engine, nil
}

func newTestHandler(store Store) (*fakeEngine, http.Handler) {
	eng := &fakeEngine{store: store}
	h := NewHandler(slog.New(slog.NewTextHandler(&strings.Builder{}, nil)), &fakeProvider{engine: eng})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return eng, r
}

func TestHandlerState(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Store Store `json:"store"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Store.POs, 3)
}

func TestHandlerViewSortDisablesReorder(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pos/view?sort=poNumber", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View           View `json:"view"`
		ReorderEnabled bool `json:"reorderEnabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.ReorderEnabled)
	require.Equal(t, "PO-1", body.View.Rows[0].PO.PONumber)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pos/view", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.ReorderEnabled)
}

func TestHandlerViewUnknownSortKeyKeepsManualOrder(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pos/view?sort=bogus", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View           View `json:"view"`
		ReorderEnabled bool `json:"reorderEnabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.ReorderEnabled, "an unrecognized sort key must not lock out reordering")
	require.Equal(t, "po1", body.View.Rows[0].PO.ID, "manual order preserved")
}

func TestHandlerCreateTraining(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trainings", strings.NewReader(`{"name":"Terraform"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created Training
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Terraform", created.Name)
	require.Len(t, eng.Draft().Trainings, 3)
}

func TestHandlerCreateTrainingRejectsMissingName(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trainings", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateProducerParsesCommaDecimals(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/producers", strings.NewReader(`{"name":"Iris","rate":"550,5","markup":"120"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	producers := eng.Draft().Producers
	require.Equal(t, 550.5, producers[len(producers)-1].Rate)
	require.Equal(t, 120.0, producers[len(producers)-1].Markup)
}

func TestHandlerUpdatePOWarnsOnDuplicateNumber(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/pos/po3", strings.NewReader(`{"poNumber":"PO-2","status":"paid","sessions":[]}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body poResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.DuplicateNumber)
	require.Equal(t, "po3", body.PO.ID, "the path id wins over any id in the payload")
}

func TestHandlerUpdatePOUnknownID(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/pos/missing", strings.NewReader(`{"poNumber":"X","sessions":[]}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDuplicatePO(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pos/po1/duplicate", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	draft := eng.Draft()
	require.Len(t, draft.POs, 4)
	require.Equal(t, "PO-2-copy", draft.POs[0].PONumber)
}

func TestHandlerReorder(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pos/reorder", strings.NewReader(`{"from":0,"to":2}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"po2", "po3", "po1"}, poIDs(eng.Draft()))
}

func TestHandlerMarkPaid(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pos/po1/pay", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	po, ok := eng.Draft().FindPO("po1")
	require.True(t, ok)
	require.Equal(t, POStatusPaid, po.Status)
}

func TestHandlerSessionLifecycle(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pos/po3/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, 1.0, created.Units)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pos/po3/sessions/"+created.ID+"/duplicate", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	po, _ := eng.Draft().FindPO("po3")
	require.Len(t, po.Sessions, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/pos/po3/sessions/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	po, _ = eng.Draft().FindPO("po3")
	require.Len(t, po.Sessions, 1)
	require.NotEqual(t, created.ID, po.Sessions[0].ID)
}

func TestHandlerMoveSession(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pos/po1/sessions/s1/move", strings.NewReader(`{"to":1}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	po, _ := eng.Draft().FindPO("po1")
	require.Equal(t, "s2", po.Sessions[0].ID)
	require.Equal(t, "s1", po.Sessions[1].ID)
}

func TestHandlerExport(t *testing.T) {
	_, router := newTestHandler(pipelineStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "orderdesk-export-")

	var store Store
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &store))
	require.Equal(t, StoreVersion, store.Version)
}

func TestHandlerImportReplacesDraft(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())
	payload, err := Export(Store{Version: StoreVersion, POs: []PO{{ID: "only", PONumber: "PO-77"}}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(string(payload))))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"only"}, poIDs(eng.Draft()))
}

func TestHandlerImportBadVersionLeavesDraftAlone(t *testing.T) {
	eng, router := newTestHandler(pipelineStore())
	before := Canonical(eng.Draft())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"version":2}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, before, Canonical(eng.Draft()))
}
