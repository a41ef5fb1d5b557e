package view

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type overviewState int

const (
	overviewStateTimeframe overviewState = iota
	overviewStateBrowse
)

// OpenReconcileMsg asks the shell to open a row for reconciliation.
type OpenReconcileMsg struct {
	Row    payroll.Row
	Period payroll.Period
}

type OverviewModel struct {
	CommonModel
	svc  *payroll.Service
	sess *session.Session

	state  overviewState
	picker TimeframePicker
	period payroll.Period

	table   table.Model
	rows    []payroll.Row
	visible []payroll.Row

	// 0 shows every status; i > 0 shows payroll.Statuses[i-1].
	statusFilterIdx int

	generating map[int64]bool
	loading    bool
	err        error
	status     string
}

func NewOverviewModel(svc *payroll.Service, sess *session.Session) OverviewModel {
	columns := []table.Column{
		{Title: "Payroll", Width: 8},
		{Title: "Driver", Width: 24},
		{Title: "Runs", Width: 5},
		{Title: "Weight (kg)", Width: 12},
		{Title: "Payable", Width: 11},
		{Title: "Paid", Width: 11},
		{Title: "Balance", Width: 11},
		{Title: "Status", Width: 10},
	}

	return OverviewModel{
		svc:        svc,
		sess:       sess,
		state:      overviewStateTimeframe,
		picker:     NewTimeframePicker(),
		table:      newTable(columns, 15),
		generating: make(map[int64]bool),
	}
}

func newTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m OverviewModel) Title() string { return "Payroll Overview" }

func (m OverviewModel) ShortHelp() string {
	if m.state == overviewStateTimeframe {
		return "Enter: select period | Esc: back"
	}

	return "Enter: reconcile | g: generate | f: status filter | r: refresh | p: period | Esc: back"
}

func (m OverviewModel) Init() tea.Cmd {
	return nil
}

// Period is the period currently shown.
func (m OverviewModel) Period() payroll.Period {
	return m.period
}

// SetRows replaces the rows with an overview reloaded elsewhere.
func (m *OverviewModel) SetRows(rows []payroll.Row) {
	m.rows = rows
	m.refreshTable()
}

// Reload fetches the overview of the current period again.
func (m OverviewModel) Reload() tea.Cmd {
	return m.loadCmd()
}

func (m OverviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.period = msg.Period
		m.state = overviewStateBrowse
		m.loading = true

		return m, m.loadCmd()

	case overviewLoadedMsg:
		if msg.period != m.period {
			return m, nil
		}

		m.loading = false
		m.err = msg.err

		if msg.err != nil {
			return m, sessionLost(msg.err)
		}

		m.SetRows(msg.rows)

		return m, nil

	case generateDoneMsg:
		delete(m.generating, msg.driverID)

		if errors.Is(msg.err, payroll.ErrReloadFailed) {
			m.status = fmt.Sprintf("Generated payroll for driver %d; reload failed, refreshing", msg.driverID)
			return m, m.loadCmd()
		}

		if msg.err != nil {
			m.status = fmt.Sprintf("Generate failed for driver %d: %v", msg.driverID, msg.err)
			return m, sessionLost(msg.err)
		}

		switch {
		case msg.out.AlreadyExists:
			m.status = fmt.Sprintf("Payroll for driver %d already exists; list reloaded", msg.driverID)
		case msg.out.PayrollID != nil:
			m.status = fmt.Sprintf("Generated payroll %d", *msg.out.PayrollID)
		}

		m.SetRows(msg.out.Rows)

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil
	}

	switch m.state {
	case overviewStateTimeframe:
		return m.updateTimeframe(msg)
	case overviewStateBrowse:
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m OverviewModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
			if m.period.Start.IsZero() {
				return m, Back
			}

			m.state = overviewStateBrowse

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m OverviewModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "p":
			m.picker.Reset()
			m.state = overviewStateTimeframe

			return m, nil
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "f":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % (len(payroll.Statuses) + 1)
			m.refreshTable()

			return m, nil
		case "g":
			return m.generate()
		case "enter":
			row, ok := m.selected()
			if !ok {
				return m, nil
			}

			period := m.period

			return m, func() tea.Msg { return OpenReconcileMsg{Row: row, Period: period} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m OverviewModel) generate() (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok {
		return m, nil
	}

	if !row.Status.Allows(payroll.ActionGenerate) {
		m.status = fmt.Sprintf("%s has a %s payroll; nothing to generate", row.DriverName, row.Status)
		return m, nil
	}

	if m.generating[row.DriverID] {
		m.status = fmt.Sprintf("Already generating for %s", row.DriverName)
		return m, nil
	}

	m.generating[row.DriverID] = true
	m.status = fmt.Sprintf("Generating payroll for %s...", row.DriverName)

	svc, sess, period := m.svc, m.sess, m.period

	return m, func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		out, err := svc.Generate(ctx, sess, row, period)

		return generateDoneMsg{driverID: row.DriverID, out: out, err: err}
	}
}

func (m OverviewModel) selected() (payroll.Row, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return payroll.Row{}, false
	}

	return m.visible[idx], true
}

func (m OverviewModel) statusFilter() payroll.Status {
	if m.statusFilterIdx == 0 {
		return ""
	}

	return payroll.Statuses[m.statusFilterIdx-1]
}

func (m *OverviewModel) refreshTable() {
	m.visible = payroll.FilterByStatus(m.rows, m.statusFilter())

	rows := make([]table.Row, 0, len(m.visible))
	for _, r := range m.visible {
		rows = append(rows, table.Row{
			formatPayrollID(r.PayrollID),
			r.DriverName,
			fmt.Sprintf("%d", r.TripCount),
			FormatKg(r.TotalWeightKg),
			FormatAmount(r.Payable),
			FormatAmount(r.PaidAmount),
			FormatAmount(r.Balance()),
			string(r.Status),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m OverviewModel) View() string {
	if m.state == overviewStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Loading payroll for %s...", m.period))
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorText(m.err) + "\n\n(r to retry, p to change period)")
	}

	filter := "All"
	if s := m.statusFilter(); s != "" {
		filter = string(s)
	}

	header := fmt.Sprintf("Period: %s | [f] Status: %s | %d of %d drivers",
		activeStyle(m.period.String()), activeStyle(filter), len(m.visible), len(m.rows))

	var payable, paid float64
	for _, r := range m.visible {
		payable += r.Payable
		paid += r.PaidAmount
	}

	footer := fmt.Sprintf("Payable %s | Paid %s | Outstanding %s",
		FormatAmount(payroll.Round2(payable)), FormatAmount(payroll.Round2(paid)), FormatAmount(payroll.Round2(payable-paid)))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
		footer,
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type overviewLoadedMsg struct {
	period payroll.Period
	rows   []payroll.Row
	err    error
}

type generateDoneMsg struct {
	driverID int64
	out      payroll.Outcome
	err      error
}

func (m OverviewModel) loadCmd() tea.Cmd {
	svc, sess, period := m.svc, m.sess, m.period

	return func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		rows, err := svc.Overview(ctx, sess, period)

		return overviewLoadedMsg{period: period, rows: rows, err: err}
	}
}
