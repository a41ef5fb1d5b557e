package export_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/export"
	exportHandler "github.com/MrJamesThe3rd/haulbook/internal/http/export"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

var (
	testSession = &session.Session{Token: "token"}
	testPeriod  = payroll.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
)

func newRouter(gw payroll.Gateway) http.Handler {
	h := exportHandler.NewHandler(export.NewService(payroll.NewService(gw)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(session.WithContext(req.Context(), testSession)))
		})
	})
	h.Routes(r)

	return r
}

func overview() []payroll.Row {
	return []payroll.Row{
		{DriverID: 7, DriverName: "Dana Ortiz", Period: testPeriod, TripCount: 3, TotalWeightKg: 170, Payable: 910, Status: payroll.StatusPreview},
		{PayrollID: new(int64(41)), DriverID: 8, DriverName: "Sam Reyes", Period: testPeriod, TripCount: 1, TotalWeightKg: 20, Payable: 100, Status: payroll.StatusPaid, PaidAmount: 100},
	}
}

func TestHandler_DownloadCSV(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(overview(), nil)

	rec := httptest.NewRecorder()
	newRouter(gw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.csv?from=2026-03-01&to=2026-03-15&status=preview", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payroll_20260301_20260315_preview.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))
	assert.Equal(t,
		"Driver,Driver ID,Period Start,Period End,Run Count,Total Weight (kg),Payable,Status,Paid Amount\n"+
			"Dana Ortiz,7,2026-03-01,2026-03-15,3,170.00,910.00,PREVIEW,0.00\n",
		rec.Body.String())
}

func TestHandler_DownloadXLSX(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(overview(), nil)

	rec := httptest.NewRecorder()
	newRouter(gw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.xlsx?from=2026-03-01&to=2026-03-15", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Row-Count"))
	assert.NotZero(t, rec.Body.Len())
}

func TestHandler_DownloadBadPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	rec := httptest.NewRecorder()
	newRouter(gw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.csv?from=2026-03-15", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Summary(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(overview(), nil)

	rec := httptest.NewRecorder()
	newRouter(gw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/summary?from=2026-03-01&to=2026-03-15&status=PAID", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Rows    int    `json:"rows"`
		Summary string `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 1, got.Rows)
	assert.Contains(t, got.Summary, "Sam Reyes")
}
