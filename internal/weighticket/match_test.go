package weighticket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

func trips() []payroll.TripLine {
	return []payroll.TripLine{
		{TripID: 1, ClientName: "Ridgeway Foods", ClientRatePerKg: 5, OriginalWeightKg: 100, ReceiptNo: "R-100"},
		{TripID: 2, ClientName: "Ridgeway Foods", ClientRatePerKg: 5, OriginalWeightKg: 50, ReceiptNo: "R-101"},
		{TripID: 3, ClientName: "Bayside Clinic", ClientRatePerKg: 8, OriginalWeightKg: 20},
	}
}

func TestMatch(t *testing.T) {
	tickets := []weighticket.Ticket{
		{ReceiptNo: "R-100", NetWeightKg: 95.456, Line: 2},
		{ReceiptNo: "R-999", NetWeightKg: 10, Line: 3},
		{ReceiptNo: "R-101", NetWeightKg: 50, Line: 4},
		{ReceiptNo: "R-100", NetWeightKg: 80, Line: 5},
	}

	res := weighticket.Match(trips(), tickets)

	require.Len(t, res.Overrides, 2)
	assert.Equal(t, weighticket.Override{TripID: 1, ReceiptNo: "R-100", PreviousKg: 100, WeightKg: 95.46}, res.Overrides[0])
	assert.True(t, res.Overrides[0].Changed())
	assert.False(t, res.Overrides[1].Changed())

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "R-999", res.Unmatched[0].ReceiptNo)

	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, 5, res.Duplicates[0].Line)
}

func TestApply(t *testing.T) {
	id := int64(41)
	row := payroll.Row{PayrollID: &id, DriverID: 7, Status: payroll.StatusGenerated}
	rec := payroll.NewReconciliation(row, trips())

	res, err := weighticket.Apply(rec, []weighticket.Ticket{
		{ReceiptNo: "R-100", NetWeightKg: 95.456},
		{ReceiptNo: "R-101", NetWeightKg: 50},
	})
	require.NoError(t, err)
	assert.Len(t, res.Overrides, 2)

	got := rec.Trips()
	require.NotNil(t, got[0].EditedWeightKg)
	assert.Equal(t, 95.46, *got[0].EditedWeightKg)
	assert.Nil(t, got[1].EditedWeightKg, "unchanged weights are not marked as edited")
	assert.Nil(t, got[2].EditedWeightKg)

	assert.Equal(t, 165.46, rec.Totals().TotalWeightKg)
}

func TestApply_ReadOnlyPayroll(t *testing.T) {
	id := int64(41)
	rec := payroll.NewReconciliation(payroll.Row{PayrollID: &id, Status: payroll.StatusPaid}, trips())

	_, err := weighticket.Apply(rec, []weighticket.Ticket{{ReceiptNo: "R-100", NetWeightKg: 1}})
	assert.ErrorIs(t, err, payroll.ErrActionNotAllowed)
	assert.Nil(t, rec.Trips()[0].EditedWeightKg)
}
