package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/export"
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

func rows() []payroll.Row {
	id := int64(41)

	return []payroll.Row{
		{DriverID: 7, DriverName: "Dana Ortiz", Period: testPeriod, TripCount: 3, TotalWeightKg: 170, Payable: 910, Status: payroll.StatusPreview},
		{PayrollID: &id, DriverID: 8, DriverName: "Reyes, Sam", Period: testPeriod, TripCount: 2, TotalWeightKg: 80.46, Payable: 482.74, PaidAmount: 100, Status: payroll.StatusPartial},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, rows()))

	want := "Driver,Driver ID,Period Start,Period End,Run Count,Total Weight (kg),Payable,Status,Paid Amount\n" +
		"Dana Ortiz,7,2026-03-01,2026-03-15,3,170.00,910.00,PREVIEW,0.00\n" +
		"Reyes, Sam,8,2026-03-01,2026-03-15,2,80.46,482.74,PARTIAL,100.00\n"

	assert.Equal(t, want, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, rows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Payroll")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Driver", got[0][0])
	assert.Equal(t, "Paid Amount", got[0][8])
	assert.Equal(t, "Reyes, Sam", got[2][0])
	assert.Equal(t, "PARTIAL", got[2][7])
	assert.Equal(t, "482.74", got[2][6])
}

func TestService_ExportFiltersByStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(rows(), nil)

	svc := export.NewService(payroll.NewService(gw))

	var buf bytes.Buffer

	n, err := svc.Export(context.Background(), testSession, export.Request{
		Period: testPeriod,
		Status: payroll.StatusPartial,
		Format: export.FormatCSV,
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, buf.String(), "Dana Ortiz")
	assert.Contains(t, buf.String(), "PARTIAL")
}

func TestService_ExportToDir(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(rows(), nil)

	dir := filepath.Join(t.TempDir(), "exports")
	svc := export.NewService(payroll.NewService(gw))

	path, exported, err := svc.ExportToDir(context.Background(), testSession, export.Request{
		Period: testPeriod,
		Format: export.FormatXLSX,
	}, dir)
	require.NoError(t, err)
	assert.Len(t, exported, 2)
	assert.Equal(t, filepath.Join(dir, "payroll_20260301_20260315.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestService_ExportRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	_, err := export.NewService(payroll.NewService(gw)).Export(context.Background(), nil, export.Request{
		Period: testPeriod,
		Format: export.FormatCSV,
	}, &bytes.Buffer{})
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRequest_Filename(t *testing.T) {
	req := export.Request{Period: testPeriod, Status: payroll.StatusPaid, Format: export.FormatCSV}
	assert.Equal(t, "payroll_20260301_20260315_paid.csv", req.Filename())
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, export.FormatXLSX, f)

	_, err = export.ParseFormat("pdf")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	got := export.Summary(rows()[:1])
	assert.Equal(t, "* Dana Ortiz | 2026-03-01 to 2026-03-15 | 170.00 kg | 910.00 payable | 0.00 paid | PREVIEW\n", got)
}
