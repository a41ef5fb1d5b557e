package view

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

// LoggedInMsg carries the session opened by the login screen.
type LoggedInMsg struct {
	Session *session.Session
}

type LoginModel struct {
	CommonModel
	manager *session.Manager

	form       *huh.Form
	notice     string
	submitting bool
	err    error
}

// NewLoginModel builds the login screen. notice is shown above the form,
// e.g. why the previous session ended.
func NewLoginModel(manager *session.Manager, notice string) LoginModel {
	return LoginModel{manager: manager, notice: notice, form: buildLoginForm()}
}

func buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("token").
				Title("Access Token").
				Description("Paste the token issued by the back office").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return session.ErrEmptyToken
					}

					return nil
				}),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m LoginModel) Title() string     { return "Login" }
func (m LoginModel) ShortHelp() string { return "Enter: log in | Ctrl+C: quit" }

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

type loginResultMsg struct {
	sess *session.Session
	err  error
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if res, ok := msg.(loginResultMsg); ok {
		if res.err != nil {
			m.err = res.err
			m.submitting = false
			m.form = buildLoginForm()

			return m, m.form.Init()
		}

		return m, func() tea.Msg { return LoggedInMsg{Session: res.sess} }
	}

	if m.submitting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.submitting = true
	token := m.form.GetString("token")

	return m, func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		sess, err := m.manager.Login(ctx, token)

		return loginResultMsg{sess: sess, err: err}
	}
}

func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Haulbook Payroll"))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(m.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(m.form.View())

	if m.err != nil {
		b.WriteString("\n\n" + errorText(m.err))
	}

	return lipgloss.NewStyle().Padding(2).Render(b.String())
}
