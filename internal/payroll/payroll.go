package payroll

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a driver payroll.
type Status string

const (
	StatusPreview   Status = "PREVIEW"
	StatusGenerated Status = "GENERATED"
	StatusApproved  Status = "APPROVED"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPreview, StatusGenerated, StatusApproved, StatusPartial, StatusPaid}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}

	return "", fmt.Errorf("unknown payroll status %q", s)
}

// Action is a user-triggered mutation on a payroll row.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionSave     Action = "save"
	ActionApprove  Action = "approve"
	ActionPay      Action = "pay"
)

var allowedActions = map[Status][]Action{
	StatusPreview:   {ActionGenerate},
	StatusGenerated: {ActionSave, ActionApprove, ActionPay},
	StatusApproved:  {ActionPay},
	StatusPartial:   {ActionPay},
	StatusPaid:      nil,
}

// Allows reports whether the action may be issued while the payroll is in this status.
func (s Status) Allows(a Action) bool {
	for _, allowed := range allowedActions[s] {
		if allowed == a {
			return true
		}
	}

	return false
}

// Actions returns the actions permitted in this status.
func (s Status) Actions() []Action {
	return append([]Action(nil), allowedActions[s]...)
}

// TripLine is one hauling run included in a payroll period.
type TripLine struct {
	TripID           int64
	ClientName       string
	ClientRatePerKg  float64
	WasteType        string
	CompletedAt      time.Time
	OriginalWeightKg float64
	EditedWeightKg   *float64
	ReceiptNo        string
	StatusText       string
}

// EffectiveWeightKg is the edited weight when present, the original otherwise.
func (t TripLine) EffectiveWeightKg() float64 {
	return EffectiveWeight(t.OriginalWeightKg, t.EditedWeightKg)
}

// Edited reports whether the trip carries a weight override.
func (t TripLine) Edited() bool {
	return t.EditedWeightKg != nil
}

// Row is one driver's payroll for a period.
type Row struct {
	PayrollID       *int64 // nil while PREVIEW
	DriverID        int64
	DriverName      string
	Period          Period
	TripCount       int
	TotalWeightKg   float64
	ReferenceRate   float64
	Payable         float64
	PaidAmount      float64
	Status          Status
	GeneratedAt     *time.Time
	DiscrepancyNote string
}

// Balance is the amount still owed to the driver.
func (r Row) Balance() float64 {
	return Round2(r.Payable - r.PaidAmount)
}

// FilterByStatus keeps the rows in the given status. An empty status keeps every row.
func FilterByStatus(rows []Row, status Status) []Row {
	if status == "" {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Status == status {
			out = append(out, r)
		}
	}

	return out
}

// Period is an inclusive date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod truncates both bounds to dates and validates their order.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: dateOnly(start), End: dateOnly(end)}
	if p.Start.IsZero() || p.End.IsZero() {
		return Period{}, fmt.Errorf("%w: period start and end", ErrMissingField)
	}

	if p.Start.After(p.End) {
		return Period{}, ErrInvalidPeriod
	}

	return p, nil
}

// ParsePeriod parses two YYYY-MM-DD dates.
func ParsePeriod(from, to string) (Period, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(from))
	if err != nil {
		return Period{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidPeriod)
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(to))
	if err != nil {
		return Period{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidPeriod)
	}

	return NewPeriod(start, end)
}

func (p Period) String() string {
	return p.Start.Format(time.DateOnly) + " to " + p.End.Format(time.DateOnly)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TripWeight is the persisted weight of one trip.
type TripWeight struct {
	TripID   int64
	WeightKg float64
}

// GenerateParams identifies the payroll to create.
type GenerateParams struct {
	DriverID int64
	Period   Period
}

// BatchParams requests generation for every PREVIEW row of a period.
type BatchParams struct {
	Period       Period
	SkipExisting bool
}

// BatchItem is one driver in a batch report.
type BatchItem struct {
	DriverID   int64
	DriverName string
	PayrollID  *int64
	Reason     string
}

// BatchReport is the backend's account of a batch generation.
type BatchReport struct {
	Generated       []BatchItem
	SkippedExisting []BatchItem
	Failed          []BatchItem
}

// Payment is a payout recorded against a payroll.
type Payment struct {
	Amount      float64
	ProofImage  []byte
	ReferenceNo string
}

// PaymentReceipt is what the backend reports after a payment.
type PaymentReceipt struct {
	Status     Status
	PaidAmount float64
}
