package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
)

// Timeframe is a predefined or custom payroll period. Drivers are paid
// twice a month, so the half-month periods come first.
type Timeframe int

const (
	TimeframeCurrentHalf  Timeframe = 0
	TimeframePreviousHalf Timeframe = 1
	TimeframeThisMonth    Timeframe = 2
	TimeframeLastMonth    Timeframe = 3
	TimeframeCustom       Timeframe = 4
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeCurrentHalf:
		return "Current Half-Month"
	case TimeframePreviousHalf:
		return "Previous Half-Month"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

// periodFor resolves a predefined timeframe relative to now.
func periodFor(tf Timeframe, now time.Time) payroll.Period {
	y, m, d := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	lastOf := func(monthStart time.Time) time.Time { return monthStart.AddDate(0, 1, -1) }

	var start, end time.Time

	switch tf {
	case TimeframeCurrentHalf:
		if d <= 15 {
			start, end = first, first.AddDate(0, 0, 14)
		} else {
			start, end = first.AddDate(0, 0, 15), lastOf(first)
		}
	case TimeframePreviousHalf:
		if d <= 15 {
			prev := first.AddDate(0, -1, 0)
			start, end = prev.AddDate(0, 0, 15), lastOf(prev)
		} else {
			start, end = first, first.AddDate(0, 0, 14)
		}
	case TimeframeThisMonth:
		start, end = first, lastOf(first)
	case TimeframeLastMonth:
		prev := first.AddDate(0, -1, 0)
		start, end = prev, lastOf(prev)
	}

	return payroll.Period{Start: start, End: end}
}

// TimeframeSelectedMsg is emitted when the user has selected a valid period.
type TimeframeSelectedMsg struct {
	Period payroll.Period
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

// TimeframePicker selects a payroll period: one of the predefined
// timeframes or a custom date range.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	custom   *huh.Form

	now func() time.Time
	err error
}

func NewTimeframePicker() TimeframePicker {
	return TimeframePicker{
		state:    timeframeStateSelect,
		selected: TimeframeCurrentHalf,
		now:      time.Now,
	}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.state == timeframeStateCustom {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.selected > TimeframeCurrentHalf {
			m.selected--
		}
	case "down", "j":
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case "enter":
		if m.selected == TimeframeCustom {
			m.state = timeframeStateCustom
			m.custom = buildCustomPeriodForm()

			return m, m.custom.Init()
		}

		period := periodFor(m.selected, m.now())

		return m, func() tea.Msg {
			return TimeframeSelectedMsg{Period: period}
		}
	}

	return m, nil
}

func buildCustomPeriodForm() *huh.Form {
	validDate := func(s string) error {
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
			return fmt.Errorf("expected YYYY-MM-DD")
		}

		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("from").Title("Start Date").Placeholder("YYYY-MM-DD").CharLimit(10).Validate(validDate),
			huh.NewInput().Key("to").Title("End Date").Placeholder("YYYY-MM-DD").CharLimit(10).Validate(validDate),
		),
	).WithWidth(40).WithShowHelp(false)
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = timeframeStateSelect
		m.custom = nil
		m.err = nil

		return m, nil
	}

	form, cmd := m.custom.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.custom = f
	}

	if m.custom.State != huh.StateCompleted {
		return m, cmd
	}

	period, err := payroll.ParsePeriod(m.custom.GetString("from"), m.custom.GetString("to"))
	if err != nil {
		m.err = err
		m.custom = buildCustomPeriodForm()

		return m, m.custom.Init()
	}

	m.err = nil
	m.state = timeframeStateSelect
	m.custom = nil

	return m, func() tea.Msg {
		return TimeframeSelectedMsg{Period: period}
	}
}

func (m TimeframePicker) View() string {
	if m.state == timeframeStateCustom {
		s := "Enter Payroll Period:\n\n" + m.custom.View() + "\n(Esc to back)"
		if m.err != nil {
			s += "\n\n" + errorText(m.err)
		}

		return s
	}

	now := m.now()

	var b strings.Builder

	b.WriteString("Select Payroll Period:\n\n")

	for i := TimeframeCurrentHalf; i <= TimeframeCustom; i++ {
		cursor := " "
		if m.selected == i {
			cursor = ">"
		}

		label := i.String()
		if i != TimeframeCustom {
			label = fmt.Sprintf("%-20s %s", label, periodFor(i, now))
		}

		fmt.Fprintf(&b, "%s %s\n", cursor, label)
	}

	b.WriteString("\n(Enter to select, Esc to back)")

	return b.String()
}

// IsSelecting reports whether the picker shows the list rather than the custom range form.
func (m TimeframePicker) IsSelecting() bool {
	return m.state == timeframeStateSelect
}

// Reset returns the picker to the list.
func (m *TimeframePicker) Reset() {
	m.state = timeframeStateSelect
	m.selected = TimeframeCurrentHalf
	m.custom = nil
	m.err = nil
}
