package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

const (
	auditFieldFrom = iota
	auditFieldTo
	auditFieldAction
	auditFieldUser
	auditFieldCount
)

// AuditModel lists the backend audit log. Every filter edit issues a new
// query; answers to superseded queries are discarded.
type AuditModel struct {
	CommonModel
	loader *audit.Loader
	sess   *session.Session

	inputs []textinput.Model
	focus  int
	filter audit.Filter

	table   table.Model
	entries []audit.Entry
	loading bool
	err     error
}

func NewAuditModel(loader *audit.Loader, sess *session.Session) AuditModel {
	prompts := []string{"From: ", "To: ", "Action: ", "User: "}
	placeholders := []string{"YYYY-MM-DD", "YYYY-MM-DD", "any", "any"}

	inputs := make([]textinput.Model, auditFieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.Placeholder = placeholders[i]
		in.Width = 14

		if i <= auditFieldTo {
			in.CharLimit = 10
		}

		inputs[i] = in
	}

	inputs[auditFieldFrom].Focus()

	columns := []table.Column{
		{Title: "When", Width: 17},
		{Title: "User", Width: 16},
		{Title: "Action", Width: 16},
		{Title: "Entity", Width: 18},
		{Title: "Details", Width: 40},
	}

	return AuditModel{
		loader: loader,
		sess:   sess,
		inputs: inputs,
		table:  newTable(columns, 15),
	}
}

func (m AuditModel) Title() string { return "Audit Log" }

func (m AuditModel) ShortHelp() string {
	return "Tab: next filter | ↑/↓: scroll | Ctrl+R: refresh | Esc: back"
}

func (m AuditModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.queryCmd(m.filter))
}

type auditLoadedMsg struct {
	res audit.Result
}

func (m AuditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case auditLoadedMsg:
		if !m.loader.Current(msg.res.Seq) {
			return m, nil
		}

		m.loading = false
		m.err = msg.res.Err

		if msg.res.Err != nil {
			return m, sessionLost(msg.res.Err)
		}

		m.entries = msg.res.Entries
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "tab", "shift+tab":
			step := 1
			if msg.String() == "shift+tab" {
				step = auditFieldCount - 1
			}

			m.inputs[m.focus].Blur()
			m.focus = (m.focus + step) % auditFieldCount

			return m, m.inputs[m.focus].Focus()
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)

			return m, cmd
		case "ctrl+r":
			m.loading = true
			return m, m.queryCmd(m.filter)
		}
	}

	before := m.inputs[m.focus].Value()

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	if m.inputs[m.focus].Value() == before {
		return m, cmd
	}

	filter, err := m.readFilter()
	if err != nil {
		m.err = err
		return m, cmd
	}

	m.err = nil
	m.filter = filter
	m.loading = true

	return m, tea.Batch(cmd, m.queryCmd(filter))
}

// readFilter builds the filter from the inputs. Partially typed dates are
// reported as errors and do not trigger a query.
func (m AuditModel) readFilter() (audit.Filter, error) {
	f := audit.Filter{
		Action: m.inputs[auditFieldAction].Value(),
		User:   m.inputs[auditFieldUser].Value(),
	}

	var err error

	if f.From, err = parseOptionalDate(m.inputs[auditFieldFrom].Value()); err != nil {
		return audit.Filter{}, fmt.Errorf("from: %w", err)
	}

	if f.To, err = parseOptionalDate(m.inputs[auditFieldTo].Value()); err != nil {
		return audit.Filter{}, fmt.Errorf("to: %w", err)
	}

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return audit.Filter{}, fmt.Errorf("from is after to")
	}

	return f.Normalize(), nil
}

func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD")
	}

	return t, nil
}

func (m AuditModel) queryCmd(filter audit.Filter) tea.Cmd {
	loader, sess := m.loader, m.sess

	return func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		res, ok := loader.Load(ctx, sess, filter)
		if !ok {
			return nil
		}

		return auditLoadedMsg{res: res}
	}
}

func (m *AuditModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		entity := e.Entity
		if e.EntityID != "" {
			entity += " #" + e.EntityID
		}

		when := "-"
		if !e.At.IsZero() {
			when = e.At.Local().Format("2006-01-02 15:04")
		}

		rows = append(rows, table.Row{when, e.User, e.Action, entity, e.Details})
	}

	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m AuditModel) View() string {
	fields := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		fields[i] = in.View()
	}

	status := fmt.Sprintf("%d entries", len(m.entries))
	if m.loading {
		status = "Loading..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(fields, "  "),
		"",
		lipgloss.NewStyle().Faint(true).Render(status),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.err != nil {
		content += "\n" + errorText(m.err)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}
