package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
)

const backendTimeout = 30 * time.Second

// FormatAmount formats money with two decimals.
func FormatAmount(n float64) string {
	return fmt.Sprintf("%.2f", n)
}

// FormatKg formats a weight with two decimals.
func FormatKg(n float64) string {
	return fmt.Sprintf("%.2f", n)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateOnly)
}

func formatPayrollID(id *int64) string {
	if id == nil {
		return "-"
	}

	return fmt.Sprintf("%d", *id)
}

func formatStatus(s payroll.Status) string {
	color := map[payroll.Status]string{
		payroll.StatusPreview:   "245",
		payroll.StatusGenerated: "39",
		payroll.StatusApproved:  "214",
		payroll.StatusPartial:   "205",
		payroll.StatusPaid:      "46",
	}[s]

	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(s))
}

// BackendCtx returns a context with a standard timeout for backend calls.
func BackendCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), backendTimeout)
}
