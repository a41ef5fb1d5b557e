package view

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

type reconcileState int

const (
	reconcileStateLoading reconcileState = iota
	reconcileStateBrowse
	reconcileStateWeight
	reconcileStateNote
	reconcileStateImport
	reconcileStateApprove
	reconcileStatePay
)

// RowsReloadedMsg carries the overview reloaded after a mutation.
type RowsReloadedMsg struct {
	Rows []payroll.Row
}

type ReconcileModel struct {
	CommonModel
	svc     *payroll.Service
	sess    *session.Session
	tickets *weighticket.Parser
	period  payroll.Period

	state   reconcileState
	rec     *payroll.Reconciliation
	table   table.Model
	form    *huh.Form
	editing payroll.TripLine

	err    error
	status string

	// stale is set when a change went through but the overview could not be
	// reloaded; actions stay refused until a refresh succeeds.
	stale bool
}

func NewReconcileModel(svc *payroll.Service, sess *session.Session, tickets *weighticket.Parser, row payroll.Row, period payroll.Period) ReconcileModel {
	columns := []table.Column{
		{Title: "Trip", Width: 8},
		{Title: "Completed", Width: 11},
		{Title: "Client", Width: 20},
		{Title: "Waste", Width: 12},
		{Title: "Receipt", Width: 10},
		{Title: "Rate/kg", Width: 8},
		{Title: "Original", Width: 10},
		{Title: "Effective", Width: 10},
		{Title: "", Width: 2},
	}

	return ReconcileModel{
		svc:     svc,
		sess:    sess,
		tickets: tickets,
		period:  period,
		state:   reconcileStateLoading,
		rec:     payroll.NewReconciliation(row, nil),
		table:   newTable(columns, 12),
	}
}

func (m ReconcileModel) Title() string {
	return fmt.Sprintf("Reconcile %s", m.rec.Row().DriverName)
}

func (m ReconcileModel) ShortHelp() string {
	if m.state != reconcileStateBrowse {
		return "Esc: cancel"
	}

	var keys []string

	if m.rec.Editable() {
		keys = append(keys, "e: edit weight", "x: reset weight", "n: note", "i: import tickets")
	}

	for _, a := range []payroll.Action{payroll.ActionGenerate, payroll.ActionSave, payroll.ActionApprove, payroll.ActionPay} {
		if m.rec.Can(a) {
			keys = append(keys, actionKey[a]+": "+string(a))
		}
	}

	if m.stale {
		keys = nil
	}

	return strings.Join(append(keys, "r: refresh", "Esc: back"), " | ")
}

var actionKey = map[payroll.Action]string{
	payroll.ActionGenerate: "g",
	payroll.ActionSave:     "s",
	payroll.ActionApprove:  "a",
	payroll.ActionPay:      "p",
}

func (m ReconcileModel) Init() tea.Cmd {
	return m.loadTripsCmd(m.rec.Row())
}

func (m ReconcileModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tripsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = reconcileStateBrowse

			return m, sessionLost(msg.err)
		}

		m.rec.Refresh(msg.row, msg.trips)
		m.err = nil
		m.state = reconcileStateBrowse
		m.refreshTable()

		return m, nil

	case mutationDoneMsg:
		return m.afterMutation(msg)

	case resyncedMsg:
		return m.afterResync(msg)

	case ticketsParsedMsg:
		return m.applyTickets(msg)

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-18, 5))
		return m, nil
	}

	switch m.state {
	case reconcileStateBrowse:
		return m.updateBrowse(msg)
	case reconcileStateWeight, reconcileStateNote, reconcileStateImport, reconcileStateApprove, reconcileStatePay:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ReconcileModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	if m.stale && changeKeys[keyMsg.String()] {
		m.status = "Overview is out of date; press r to refresh"
		return m, nil
	}

	switch keyMsg.String() {
	case "r":
		m.status = "Refreshing..."
		return m, m.resyncCmd(m.rec.Row())
	case "esc":
		if m.rec.Busy() {
			m.status = "Wait for the running action to finish"
			return m, nil
		}

		return m, Back
	case "e":
		return m.openWeightForm()
	case "x":
		return m.resetWeight()
	case "n":
		return m.openNoteForm()
	case "i":
		return m.openImportForm()
	case "g":
		return m.begin(payroll.ActionGenerate, m.generateCmd)
	case "s":
		return m.begin(payroll.ActionSave, m.saveCmd)
	case "a":
		if !m.rec.Can(payroll.ActionApprove) {
			m.status = m.notAllowed(payroll.ActionApprove)
			return m, nil
		}

		m.form = huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Approve payroll of %s for %s?", m.rec.Row().DriverName, FormatAmount(m.rec.Row().Payable))).
				Affirmative("Approve").
				Negative("Cancel"),
		)).WithWidth(48).WithShowHelp(false)
		m.state = reconcileStateApprove

		return m, m.form.Init()
	case "p":
		return m.openPayForm()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

var changeKeys = map[string]bool{
	"e": true, "x": true, "n": true, "i": true,
	"g": true, "s": true, "a": true, "p": true,
}

func (m ReconcileModel) notAllowed(a payroll.Action) string {
	if m.rec.Busy() && m.rec.Row().Status.Allows(a) {
		return fmt.Sprintf("%s is already running", a)
	}

	return fmt.Sprintf("Cannot %s a %s payroll", a, m.rec.Row().Status)
}

func (m ReconcileModel) selectedTrip() (payroll.TripLine, bool) {
	trips := m.rec.Trips()

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(trips) {
		return payroll.TripLine{}, false
	}

	return trips[idx], true
}

func (m ReconcileModel) openWeightForm() (tea.Model, tea.Cmd) {
	if !m.rec.Editable() {
		m.status = fmt.Sprintf("Weights of a %s payroll are read-only", m.rec.Row().Status)
		return m, nil
	}

	trip, ok := m.selectedTrip()
	if !ok {
		return m, nil
	}

	m.editing = trip
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Key("weight").
			Title(fmt.Sprintf("Weight for trip %d (kg)", trip.TripID)).
			Description(fmt.Sprintf("Original %s kg", FormatKg(trip.OriginalWeightKg))).
			Placeholder(FormatKg(trip.EffectiveWeightKg())).
			Validate(func(s string) error {
				_, err := parseKg(s)
				return err
			}),
	)).WithWidth(48).WithShowHelp(false)
	m.state = reconcileStateWeight

	return m, m.form.Init()
}

func parseKg(s string) (float64, error) {
	kg, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || !payroll.ValidWeight(kg) {
		return 0, payroll.ErrInvalidWeight
	}

	return kg, nil
}

func (m ReconcileModel) resetWeight() (tea.Model, tea.Cmd) {
	trip, ok := m.selectedTrip()
	if !ok {
		return m, nil
	}

	if err := m.rec.ResetWeight(trip.TripID); err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.status = fmt.Sprintf("Trip %d back to its saved weight", trip.TripID)
	m.refreshTable()

	return m, nil
}

func (m ReconcileModel) openNoteForm() (tea.Model, tea.Cmd) {
	if !m.rec.Editable() {
		m.status = fmt.Sprintf("Note of a %s payroll is read-only", m.rec.Row().Status)
		return m, nil
	}

	note := m.rec.Note()

	m.form = huh.NewForm(huh.NewGroup(
		huh.NewText().
			Key("note").
			Title("Discrepancy Note").
			CharLimit(2000).
			Value(&note),
	)).WithWidth(48).WithShowHelp(false)
	m.state = reconcileStateNote

	return m, m.form.Init()
}

func (m ReconcileModel) openImportForm() (tea.Model, tea.Cmd) {
	if !m.rec.Editable() {
		m.status = fmt.Sprintf("Weights of a %s payroll are read-only", m.rec.Row().Status)
		return m, nil
	}

	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Key("path").
			Title("Weigh-bridge Export").
			Description("CSV file exported from the scale house").
			Placeholder("./tickets.csv").
			Validate(func(s string) error {
				if _, err := os.Stat(strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("file not found")
				}

				return nil
			}),
	)).WithWidth(48).WithShowHelp(false)
	m.state = reconcileStateImport

	return m, m.form.Init()
}

func (m ReconcileModel) openPayForm() (tea.Model, tea.Cmd) {
	if !m.rec.Can(payroll.ActionPay) {
		m.status = m.notAllowed(payroll.ActionPay)
		return m, nil
	}

	balance := m.rec.Row().Balance()

	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Key("amount").
			Title("Amount").
			Description(fmt.Sprintf("Outstanding %s", FormatAmount(balance))).
			Placeholder(FormatAmount(balance)).
			Validate(func(s string) error {
				amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return fmt.Errorf("enter a number")
				}

				if payroll.Round2(amount) <= 0 {
					return payroll.ErrInvalidAmount
				}

				return nil
			}),
		huh.NewInput().
			Key("proof").
			Title("Proof of Payment").
			Description("Path to the transfer receipt image").
			Validate(func(s string) error {
				info, err := os.Stat(strings.TrimSpace(s))
				if err != nil || info.Size() == 0 {
					return payroll.ErrMissingProof
				}

				return nil
			}),
		huh.NewInput().
			Key("reference").
			Title("Reference No").
			Description("Optional"),
	)).WithWidth(48).WithShowHelp(false)
	m.state = reconcileStatePay

	return m, m.form.Init()
}

func (m ReconcileModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = reconcileStateBrowse
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	state := m.state
	m.state = reconcileStateBrowse

	switch state {
	case reconcileStateWeight:
		kg, err := parseKg(m.form.GetString("weight"))
		if err == nil {
			err = m.rec.SetWeight(m.editing.TripID, kg)
		}

		if err != nil {
			m.status = err.Error()
			return m, nil
		}

		m.status = fmt.Sprintf("Trip %d set to %s kg (unsaved)", m.editing.TripID, FormatKg(payroll.Round2(kg)))
		m.refreshTable()

	case reconcileStateNote:
		if err := m.rec.SetNote(m.form.GetString("note")); err != nil {
			m.status = err.Error()
		}

	case reconcileStateImport:
		path := strings.TrimSpace(m.form.GetString("path"))
		parser := m.tickets

		return m, func() tea.Msg {
			f, err := os.Open(path)
			if err != nil {
				return ticketsParsedMsg{err: err}
			}
			defer f.Close()

			tickets, err := parser.Parse(f)

			return ticketsParsedMsg{path: path, tickets: tickets, err: err}
		}

	case reconcileStateApprove:
		if !m.form.GetBool("confirm") {
			return m, nil
		}

		return m.begin(payroll.ActionApprove, m.approveCmd)

	case reconcileStatePay:
		amount, _ := strconv.ParseFloat(strings.TrimSpace(m.form.GetString("amount")), 64)

		proof, err := os.ReadFile(strings.TrimSpace(m.form.GetString("proof")))
		if err != nil {
			m.status = fmt.Sprintf("Reading proof: %v", err)
			return m, nil
		}

		payment := payroll.Payment{
			Amount:      amount,
			ProofImage:  proof,
			ReferenceNo: strings.TrimSpace(m.form.GetString("reference")),
		}

		return m.begin(payroll.ActionPay, func() tea.Cmd { return m.payCmd(payment) })
	}

	m.form = nil

	return m, nil
}

func (m ReconcileModel) applyTickets(msg ticketsParsedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = fmt.Sprintf("Import failed: %v", msg.err)
		return m, nil
	}

	res, err := weighticket.Apply(m.rec, msg.tickets)

	changed := 0
	for _, o := range res.Overrides {
		if o.Changed() {
			changed++
		}
	}

	m.status = fmt.Sprintf("%d tickets: %d matched, %d weights changed, %d unmatched, %d duplicates (unsaved)",
		len(msg.tickets), len(res.Overrides), changed, len(res.Unmatched), len(res.Duplicates))

	if err != nil {
		m.status += "\n" + err.Error()
	}

	m.refreshTable()

	return m, nil
}

// begin marks the action in flight and runs it. A second press while the
// action is running is refused.
func (m ReconcileModel) begin(a payroll.Action, run func() tea.Cmd) (tea.Model, tea.Cmd) {
	if m.stale {
		m.status = "Overview is out of date; press r to refresh"
		return m, nil
	}

	if err := m.rec.Begin(a); err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.status = fmt.Sprintf("Running %s...", a)

	return m, run()
}

type mutationDoneMsg struct {
	action payroll.Action
	out    payroll.Outcome
	err    error
}

func (m ReconcileModel) mutation(a payroll.Action, fn func() (payroll.Outcome, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := fn()
		return mutationDoneMsg{action: a, out: out, err: err}
	}
}

func (m ReconcileModel) generateCmd() tea.Cmd {
	svc, sess, row, period := m.svc, m.sess, m.rec.Row(), m.period

	return m.mutation(payroll.ActionGenerate, func() (payroll.Outcome, error) {
		ctx, cancel := BackendCtx()
		defer cancel()

		return svc.Generate(ctx, sess, row, period)
	})
}

func (m ReconcileModel) saveCmd() tea.Cmd {
	svc, sess, row, period := m.svc, m.sess, m.rec.Row(), m.period
	note, trips := m.rec.Note(), m.rec.Trips()

	return m.mutation(payroll.ActionSave, func() (payroll.Outcome, error) {
		ctx, cancel := BackendCtx()
		defer cancel()

		return svc.Save(ctx, sess, row, note, trips, period)
	})
}

func (m ReconcileModel) approveCmd() tea.Cmd {
	svc, sess, row, period := m.svc, m.sess, m.rec.Row(), m.period

	return m.mutation(payroll.ActionApprove, func() (payroll.Outcome, error) {
		ctx, cancel := BackendCtx()
		defer cancel()

		return svc.Approve(ctx, sess, row, period)
	})
}

func (m ReconcileModel) payCmd(payment payroll.Payment) tea.Cmd {
	svc, sess, row, period := m.svc, m.sess, m.rec.Row(), m.period

	return m.mutation(payroll.ActionPay, func() (payroll.Outcome, error) {
		ctx, cancel := BackendCtx()
		defer cancel()

		return svc.Pay(ctx, sess, row, payment, period)
	})
}

// afterMutation adopts the reloaded overview: the row is replaced by its
// reloaded version and its trips are fetched again.
func (m ReconcileModel) afterMutation(msg mutationDoneMsg) (tea.Model, tea.Cmd) {
	m.rec.End(msg.action)
	m.form = nil

	if errors.Is(msg.err, payroll.ErrReloadFailed) {
		m.stale = true
		m.status = fmt.Sprintf("%s done; reload failed, refreshing", msg.action)

		if msg.out.Receipt != nil {
			m.status = fmt.Sprintf("Payment recorded: %s, paid %s; reload failed, refreshing",
				msg.out.Receipt.Status, FormatAmount(msg.out.Receipt.PaidAmount))
		}

		return m, m.resyncCmd(m.rec.Row())
	}

	if msg.err != nil {
		m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		return m, sessionLost(msg.err)
	}

	switch {
	case msg.out.AlreadyExists:
		m.status = "Payroll already existed; reloaded"
	case msg.out.Receipt != nil:
		m.status = fmt.Sprintf("Payment recorded: %s, paid %s", msg.out.Receipt.Status, FormatAmount(msg.out.Receipt.PaidAmount))
	default:
		m.status = fmt.Sprintf("%s done", msg.action)
	}

	rows := msg.out.Rows
	reloaded := func() tea.Msg { return RowsReloadedMsg{Rows: rows} }

	row, ok := findRow(rows, m.rec.Row())
	if !ok {
		m.err = errors.New("row no longer listed for this period")
		return m, reloaded
	}

	m.state = reconcileStateLoading

	return m, tea.Batch(reloaded, m.loadTripsCmd(row))
}

type resyncedMsg struct {
	rows  []payroll.Row
	row   payroll.Row
	found bool
	trips []payroll.TripLine
	err   error
}

// resyncCmd reloads the overview and the trips of the row being reconciled.
func (m ReconcileModel) resyncCmd(current payroll.Row) tea.Cmd {
	svc, sess, period := m.svc, m.sess, m.period

	return func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		rows, err := svc.Overview(ctx, sess, period)
		if err != nil {
			return resyncedMsg{err: err}
		}

		row, ok := findRow(rows, current)
		if !ok {
			return resyncedMsg{rows: rows}
		}

		trips, err := svc.Trips(ctx, sess, row)

		return resyncedMsg{rows: rows, row: row, found: true, trips: trips, err: err}
	}
}

func (m ReconcileModel) afterResync(msg resyncedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.status = "Refresh failed; press r to retry"

		return m, sessionLost(msg.err)
	}

	rows := msg.rows
	reloaded := func() tea.Msg { return RowsReloadedMsg{Rows: rows} }

	if !msg.found {
		m.err = errors.New("row no longer listed for this period")
		return m, reloaded
	}

	m.rec.Refresh(msg.row, msg.trips)
	m.stale = false
	m.err = nil
	m.state = reconcileStateBrowse
	m.status = "Refreshed"
	m.refreshTable()

	return m, reloaded
}

// findRow locates a row in a reloaded overview: by payroll id once it has
// one, by driver otherwise.
func findRow(rows []payroll.Row, current payroll.Row) (payroll.Row, bool) {
	for _, r := range rows {
		if current.PayrollID != nil && r.PayrollID != nil && *r.PayrollID == *current.PayrollID {
			return r, true
		}
	}

	for _, r := range rows {
		if r.DriverID == current.DriverID && r.Period == current.Period {
			return r, true
		}
	}

	return payroll.Row{}, false
}

type tripsLoadedMsg struct {
	row   payroll.Row
	trips []payroll.TripLine
	err   error
}

type ticketsParsedMsg struct {
	path    string
	tickets []weighticket.Ticket
	err     error
}

func (m ReconcileModel) loadTripsCmd(row payroll.Row) tea.Cmd {
	svc, sess := m.svc, m.sess

	return func() tea.Msg {
		ctx, cancel := BackendCtx()
		defer cancel()

		trips, err := svc.Trips(ctx, sess, row)

		return tripsLoadedMsg{row: row, trips: trips, err: err}
	}
}

func (m *ReconcileModel) refreshTable() {
	trips := m.rec.Trips()

	rows := make([]table.Row, 0, len(trips))
	for _, t := range trips {
		mark := ""
		if t.Edited() {
			mark = "*"
		}

		rows = append(rows, table.Row{
			fmt.Sprintf("%d", t.TripID),
			FormatDate(t.CompletedAt),
			t.ClientName,
			t.WasteType,
			t.ReceiptNo,
			FormatAmount(t.ClientRatePerKg),
			FormatKg(t.OriginalWeightKg),
			FormatKg(t.EffectiveWeightKg()),
			mark,
		})
	}

	m.table.SetRows(rows)
}

func (m ReconcileModel) View() string {
	row := m.rec.Row()

	if m.state == reconcileStateLoading {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Loading trips for %s...", row.DriverName))
	}

	totals := m.rec.Totals()

	header := fmt.Sprintf("%s | Payroll %s | %s | %s",
		lipgloss.NewStyle().Bold(true).Render(row.DriverName),
		formatPayrollID(row.PayrollID),
		row.Period,
		formatStatus(row.Status))

	figures := fmt.Sprintf("Backend: %d runs, %s kg, payable %s, paid %s\nLocal:   %d runs, %s kg, payable %s",
		row.TripCount, FormatKg(row.TotalWeightKg), FormatAmount(row.Payable), FormatAmount(row.PaidAmount),
		totals.TripCount, FormatKg(totals.TotalWeightKg), FormatAmount(totals.ComputedPayable))

	if totals.Differs(row) {
		figures += "\n" + activeStyle("Local figures differ from the backend; save to persist the edits")
	}

	var subtotals strings.Builder
	for _, s := range totals.Subtotals {
		fmt.Fprintf(&subtotals, "  %-20s @ %s/kg  %3d runs  %10s kg  %10s\n",
			s.ClientName, FormatAmount(s.RatePerKg), s.TripCount, FormatKg(s.TotalWeightKg), FormatAmount(s.SubtotalPayable))
	}

	note := m.rec.Note()
	if note == "" {
		note = "-"
	}

	if m.rec.Dirty() {
		header += " " + activeStyle("(unsaved changes)")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		figures,
		"",
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
		"Subtotals:",
		subtotals.String(),
		"Note: "+note,
	)

	if m.form != nil && m.state != reconcileStateBrowse {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel(m.formTitle(), m.form.View()))
	}

	if m.err != nil {
		content = errorText(m.err) + "\n" + content
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ReconcileModel) formTitle() string {
	switch m.state {
	case reconcileStateWeight:
		return "Edit Weight"
	case reconcileStateNote:
		return "Discrepancy Note"
	case reconcileStateImport:
		return "Import Weigh Tickets"
	case reconcileStateApprove:
		return "Approve"
	case reconcileStatePay:
		return "Record Payment"
	}

	return ""
}
