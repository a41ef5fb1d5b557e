package weighticket_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

func TestParser_ScaleHouse(t *testing.T) {
	csv := `Northgate Transfer Station - weighings export
Generated;19-03-2026

Ticket No;Date;Vehicle;Net Weight (kg)
R-100;02-03-2026;AB-12-CD;1.250,50
R-101;03-03-2026;AB-12-CD;48,7
;;;Total 1.299,20
`

	tickets, err := weighticket.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, "R-100", tickets[0].ReceiptNo)
	assert.Equal(t, 1250.5, tickets[0].NetWeightKg)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tickets[0].WeighedAt)
	assert.Equal(t, 5, tickets[0].Line)

	assert.Equal(t, "R-101", tickets[1].ReceiptNo)
	assert.Equal(t, 48.7, tickets[1].NetWeightKg)
}

func TestParser_GrossTareCommaSeparated(t *testing.T) {
	csv := "Receipt No,Date,Gross (kg),Tare (kg)\n" +
		"R-200,2026-03-04,12840.5,11200\n" +
		"R-201,2026-03-04,\"13,010.25\",11200\n"

	tickets, err := weighticket.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, 1640.5, tickets[0].NetWeightKg)
	assert.Equal(t, 1810.25, tickets[1].NetWeightKg)
	assert.Equal(t, 4, tickets[1].WeighedAt.Day())
}

func TestParser_Latin1Balanca(t *testing.T) {
	utf8CSV := "Talão;Data;Peso Líquido (kg)\nT-0042;05/03/2026;980,4\n"

	latin1, err := charmap.Windows1252.NewEncoder().String(utf8CSV)
	require.NoError(t, err)

	tickets, err := weighticket.NewParser().Parse(strings.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "T-0042", tickets[0].ReceiptNo)
	assert.Equal(t, 980.4, tickets[0].NetWeightKg)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
	}{
		{
			name:    "UnknownLayout",
			csv:     "Foo;Bar\n1;2\n",
			wantErr: "no matching weigh-bridge format",
		},
		{
			name:    "BadWeight",
			csv:     "Ticket No;Net Weight (kg)\nR-1;heavy\n",
			wantErr: "row 2 (R-1): net weight",
		},
		{
			name:    "TareAboveGross",
			csv:     "Receipt No;Gross (kg);Tare (kg)\nR-1;100;200\n",
			wantErr: "tare 200 exceeds gross 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := weighticket.NewParser().Parse(strings.NewReader(tt.csv))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParser_Empty(t *testing.T) {
	tickets, err := weighticket.NewParser().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestParser_HeaderOnly(t *testing.T) {
	tickets, err := weighticket.NewParser().Parse(strings.NewReader("ticket no;net weight (kg)\n"))
	require.NoError(t, err)
	assert.Empty(t, tickets)
}
