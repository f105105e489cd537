package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-bonda108/Dentsi-sub000/internal/conversation"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

type fakeCallLog struct {
	records []conversation.CallRecord
}

func (f *fakeCallLog) GetCall(_ context.Context, callID string) (*conversation.CallRecord, error) {
	for _, r := range f.records {
		if r.CallID == callID {
			rec := r
			return &rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCallLog) RecentCalls(_ context.Context, clinicID string, limit int) ([]conversation.CallRecord, error) {
	var out []conversation.CallRecord
	for _, r := range f.records {
		if r.ClinicID == clinicID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func callsTestRouter(h *AdminCallsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/admin/clinics/{clinicID}/calls", h.ListCalls)
	r.Get("/admin/calls/{callID}", h.GetCall)
	return r
}

func TestListCalls(t *testing.T) {
	log := &fakeCallLog{records: []conversation.CallRecord{
		{ID: uuid.New(), CallID: "call-1", ClinicID: "clinic1", Outcome: "booked", StartedAt: time.Now()},
		{ID: uuid.New(), CallID: "call-2", ClinicID: "clinic1", Outcome: "escalated", StartedAt: time.Now()},
		{ID: uuid.New(), CallID: "call-3", ClinicID: "clinic2", StartedAt: time.Now()},
	}}
	h := NewAdminCallsHandler(log, logging.New("error"))
	srv := callsTestRouter(h)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/clinics/clinic1/calls", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Calls []conversation.CallRecord `json:"calls"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Calls, 2)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/clinics/clinic1/calls?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Calls, 1)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/clinics/clinic1/calls?limit=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCall(t *testing.T) {
	log := &fakeCallLog{records: []conversation.CallRecord{
		{ID: uuid.New(), CallID: "call-1", ClinicID: "clinic1", Transcript: "Patient: hi\nDentsi: hello", Outcome: "inquiry_answered", StartedAt: time.Now()},
	}}
	h := NewAdminCallsHandler(log, logging.New("error"))
	srv := callsTestRouter(h)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/calls/call-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var rec conversation.CallRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, "inquiry_answered", rec.Outcome)
	assert.Contains(t, rec.Transcript, "Dentsi: hello")

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/calls/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
