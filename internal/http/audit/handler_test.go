package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	auditHandler "github.com/MrJamesThe3rd/haulbook/internal/http/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type fakeSource struct {
	got     audit.Filter
	entries []audit.Entry
}

func (f *fakeSource) AuditLogs(_ context.Context, _ *session.Session, filter audit.Filter) ([]audit.Entry, error) {
	f.got = filter
	return f.entries, nil
}

func newRouter(src audit.Source, sess *session.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(session.WithContext(req.Context(), sess))
			}

			next.ServeHTTP(w, req)
		})
	})
	auditHandler.NewHandler(src).Routes(r)

	return r
}

func TestHandler_List(t *testing.T) {
	at := time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC)
	src := &fakeSource{entries: []audit.Entry{
		{ID: 9, At: at, User: "mina", Action: "PAYROLL_APPROVE", Entity: "payroll", EntityID: "41"},
	}}

	rec := httptest.NewRecorder()
	newRouter(src, &session.Session{Token: "t"}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-31&action=+PAYROLL_APPROVE+&user=mina", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "PAYROLL_APPROVE", src.got.Action)
	assert.Equal(t, "mina", src.got.User)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), src.got.From)

	var got []struct {
		ID       int64     `json:"id"`
		At       time.Time `json:"at"`
		EntityID string    `json:"entity_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].ID)
	assert.True(t, at.Equal(got[0].At))
	assert.Equal(t, "41", got[0].EntityID)
}

func TestHandler_ListValidation(t *testing.T) {
	tests := []struct {
		name       string
		sess       *session.Session
		query      string
		wantStatus int
	}{
		{name: "bad from", sess: &session.Session{Token: "t"}, query: "from=March", wantStatus: http.StatusBadRequest},
		{name: "bad to", sess: &session.Session{Token: "t"}, query: "to=31/03/2026", wantStatus: http.StatusBadRequest},
		{name: "no session", sess: nil, query: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(&fakeSource{}, tt.sess).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
