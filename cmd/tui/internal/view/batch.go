package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type batchState int

const (
	batchStateTimeframe batchState = iota
	batchStateConfirm
	batchStateRunning
	batchStateReport
)

type BatchModel struct {
	CommonModel
	svc  *payroll.Service
	sess *session.Session

	state   batchState
	picker  TimeframePicker
	period  payroll.Period
	form    *huh.Form
	spinner spinner.Model

	report  *payroll.BatchReport
	err     error
	warning string
}

func NewBatchModel(svc *payroll.Service, sess *session.Session) BatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return BatchModel{
		svc:     svc,
		sess:    sess,
		state:   batchStateTimeframe,
		picker:  NewTimeframePicker(),
		spinner: s,
	}
}

func (m BatchModel) Title() string { return "Batch Generate" }

func (m BatchModel) ShortHelp() string {
	switch m.state {
	case batchStateRunning:
		return "Generating..."
	case batchStateReport:
		return "Esc: back to menu"
	}

	return "Enter: confirm | Esc: back"
}

func (m BatchModel) Init() tea.Cmd {
	return nil
}

type batchDoneMsg struct {
	out payroll.Outcome
	err error
}

func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.period = msg.Period
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Generate every preview payroll for %s?", msg.Period)).
				Description("Drivers that already have a payroll are skipped.").
				Affirmative("Generate").
				Negative("Cancel"),
		)).WithWidth(60).WithShowHelp(false)
		m.state = batchStateConfirm

		return m, m.form.Init()

	case batchDoneMsg:
		m.state = batchStateReport
		m.err = msg.err
		m.report = msg.out.Batch

		if errors.Is(msg.err, payroll.ErrReloadFailed) {
			m.err = nil
			m.warning = "Batch done; reload failed. Reopen the overview to refresh."

			return m, nil
		}

		if msg.err != nil {
			return m, sessionLost(msg.err)
		}

		rows := msg.out.Rows

		return m, func() tea.Msg { return RowsReloadedMsg{Rows: rows} }
	}

	switch m.state {
	case batchStateTimeframe:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd

	case batchStateConfirm:
		return m.updateConfirm(msg)

	case batchStateRunning:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case batchStateReport:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m BatchModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = batchStateTimeframe
		m.picker.Reset()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.form.GetBool("confirm") {
		m.state = batchStateTimeframe
		m.picker.Reset()

		return m, nil
	}

	m.state = batchStateRunning
	svc, sess, period := m.svc, m.sess, m.period

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		out, err := svc.GenerateBatch(ctx, sess, period)

		return batchDoneMsg{out: out, err: err}
	})
}

func (m BatchModel) View() string {
	switch m.state {
	case batchStateTimeframe:
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	case batchStateConfirm:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	case batchStateRunning:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Generating payroll for %s...", m.spinner.View(), m.period),
		)
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(errorText(m.err))
	}

	report := batchReportText(m.period, m.report)
	if m.warning != "" {
		report = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(m.warning) + "\n\n" + report
	}

	return lipgloss.NewStyle().Padding(1).Render(report)
}

func batchReportText(period payroll.Period, report *payroll.BatchReport) string {
	if report == nil {
		return "No report returned."
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", lipgloss.NewStyle().Bold(true).Render("Batch for "+period.String()))
	fmt.Fprintf(&b, "%s  skipped %d  failed %d\n",
		successText(fmt.Sprintf("generated %d", len(report.Generated))), len(report.SkippedExisting), len(report.Failed))

	section := func(title string, items []payroll.BatchItem) {
		if len(items) == 0 {
			return
		}

		fmt.Fprintf(&b, "\n%s:\n", title)

		for _, it := range items {
			line := fmt.Sprintf("  %-24s payroll %s", it.DriverName, formatPayrollID(it.PayrollID))
			if it.Reason != "" {
				line += "  " + it.Reason
			}

			b.WriteString(line + "\n")
		}
	}

	section("Generated", report.Generated)
	section("Skipped (already generated)", report.SkippedExisting)
	section("Failed", report.Failed)

	return b.String()
}
