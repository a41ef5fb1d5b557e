package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/haulbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/backend"
	"github.com/MrJamesThe3rd/haulbook/internal/config"
	"github.com/MrJamesThe3rd/haulbook/internal/export"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

type model struct {
	cfg            *config.Config
	manager        *session.Manager
	payrollService *payroll.Service
	exportService  *export.Service
	auditLoader    *audit.Loader
	tickets        *weighticket.Parser

	sess        *session.Session
	currentView View
	width       int
	height      int

	loginView     view.LoginModel
	overviewView  view.OverviewModel
	reconcileView view.ReconcileModel
	batchView     view.BatchModel
	auditView     view.AuditModel
	exportView    view.ExportModel
}

type View int

const (
	ViewLogin     View = 0
	ViewMenu      View = 1
	ViewOverview  View = 2
	ViewReconcile View = 3
	ViewBatch     View = 4
	ViewAudit     View = 5
	ViewExport    View = 6
)

func initialModel() model {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	manager := session.NewManager(session.NewMemoryStore())

	client, err := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, backend.WithUnauthorized(manager.Invalidate))
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	payrollSvc := payroll.NewService(client)

	m := model{
		cfg:            cfg,
		manager:        manager,
		payrollService: payrollSvc,
		exportService:  export.NewService(payrollSvc),
		auditLoader:    audit.NewLoader(client),
		tickets:        weighticket.NewParser(),
		currentView:    ViewLogin,
		loginView:      view.NewLoginModel(manager, ""),
	}

	if cfg.Backend.Token == "" {
		return m
	}

	sess, err := manager.Login(context.Background(), cfg.Backend.Token)
	if err != nil {
		m.loginView = view.NewLoginModel(manager, fmt.Sprintf("BACKEND_TOKEN rejected: %v", err))
		return m
	}

	return m.loggedIn(sess)
}

func (m model) loggedIn(sess *session.Session) model {
	m.sess = sess
	m.currentView = ViewMenu
	m.overviewView = view.NewOverviewModel(m.payrollService, sess)

	return m
}

func (m model) Init() tea.Cmd {
	if m.currentView == ViewLogin {
		return m.loginView.Init()
	}

	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			return m.updateMenu(msg)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case view.LoggedInMsg:
		return m.loggedIn(msg.Session), nil

	case view.SessionLostMsg:
		if m.sess != nil {
			_ = m.manager.Logout(context.Background(), m.sess.ID)
		}

		m.sess = nil
		m.currentView = ViewLogin
		m.loginView = view.NewLoginModel(m.manager, fmt.Sprintf("Session ended: %v. Log in again.", msg.Err))

		return m, m.loginView.Init()

	case view.OpenReconcileMsg:
		m.currentView = ViewReconcile
		m.reconcileView = view.NewReconcileModel(m.payrollService, m.sess, m.tickets, msg.Row, msg.Period)

		return m, m.reconcileView.Init()

	case view.RowsReloadedMsg:
		if m.currentView == ViewReconcile {
			m.overviewView.SetRows(msg.Rows)
		}

		return m, nil

	case view.BackMsg:
		if m.currentView == ViewReconcile {
			m.currentView = ViewOverview
			return m, m.overviewView.Reload()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewOverview:
		var newModel tea.Model
		newModel, cmd = m.overviewView.Update(msg)
		m.overviewView = newModel.(view.OverviewModel)
	case ViewReconcile:
		var newModel tea.Model
		newModel, cmd = m.reconcileView.Update(msg)
		m.reconcileView = newModel.(view.ReconcileModel)
	case ViewBatch:
		var newModel tea.Model
		newModel, cmd = m.batchView.Update(msg)
		m.batchView = newModel.(view.BatchModel)
	case ViewAudit:
		var newModel tea.Model
		newModel, cmd = m.auditView.Update(msg)
		m.auditView = newModel.(view.AuditModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "1":
		m.currentView = ViewOverview
		if m.overviewView.Period().Start.IsZero() {
			return m, m.overviewView.Init()
		}

		return m, m.overviewView.Reload()
	case "2":
		m.currentView = ViewBatch
		m.batchView = view.NewBatchModel(m.payrollService, m.sess)

		return m, m.batchView.Init()
	case "3":
		m.currentView = ViewAudit
		m.auditView = view.NewAuditModel(m.auditLoader, m.sess)

		return m, m.auditView.Init()
	case "4":
		m.currentView = ViewExport
		m.exportView = view.NewExportModel(m.exportService, m.sess, m.cfg.Export.Dir)

		return m, m.exportView.Init()
	case "l":
		return m.Update(view.SessionLostMsg{Err: session.ErrNoSession})
	}

	return m, nil
}

func (m model) current() view.View {
	switch m.currentView {
	case ViewLogin:
		return m.loginView
	case ViewOverview:
		return m.overviewView
	case ViewReconcile:
		return m.reconcileView
	case ViewBatch:
		return m.batchView
	case ViewAudit:
		return m.auditView
	case ViewExport:
		return m.exportView
	}

	return nil
}

func (m model) View() string {
	if m.currentView == ViewMenu {
		operator := m.sess.Operator
		if operator == "" {
			operator = "operator"
		}

		return lipgloss.NewStyle().Padding(2).Render(
			m.cfg.App.Name + " Payroll\n" +
				lipgloss.NewStyle().Faint(true).Render("Logged in as "+operator) + "\n\n" +
				"1. Payroll Overview\n" +
				"2. Batch Generate\n" +
				"3. Audit Log\n" +
				"4. Export\n\n" +
				"l. Log out\n" +
				"q. Quit",
		)
	}

	v := m.current()
	if v == nil {
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(v.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, v.View(), help)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
