package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

//go:generate mockgen -source=service.go -destination=gateway_mock.go -package=payroll
type Gateway interface {
	Overview(ctx context.Context, sess *session.Session, period Period) ([]Row, error)
	PreviewTrips(ctx context.Context, sess *session.Session, driverID int64, period Period) ([]TripLine, error)
	PayrollTrips(ctx context.Context, sess *session.Session, payrollID int64) ([]TripLine, error)

	Generate(ctx context.Context, sess *session.Session, params GenerateParams) (int64, error)
	GenerateBatch(ctx context.Context, sess *session.Session, params BatchParams) (BatchReport, error)
	UpdateNote(ctx context.Context, sess *session.Session, payrollID int64, note string) error
	UpdateTripWeights(ctx context.Context, sess *session.Session, payrollID int64, weights []TripWeight) error
	Approve(ctx context.Context, sess *session.Session, payrollID int64) error
	Pay(ctx context.Context, sess *session.Session, payrollID int64, payment Payment) (PaymentReceipt, error)
}

type Service struct {
	gw Gateway
}

func NewService(gw Gateway) *Service {
	return &Service{gw: gw}
}

// Outcome is what a mutation reports. Rows is the overview reloaded from the
// backend after the mutation; no row state is derived locally.
type Outcome struct {
	Rows          []Row
	PayrollID     *int64
	AlreadyExists bool
	Batch         *BatchReport
	Receipt       *PaymentReceipt
}

func (s *Service) Overview(ctx context.Context, sess *session.Session, period Period) ([]Row, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	rows, err := s.gw.Overview(ctx, sess, period)
	if err != nil {
		return nil, fmt.Errorf("loading payroll overview: %w", err)
	}

	return rows, nil
}

// Trips loads the trip lines of a row: the preview query while the row has
// no payroll yet, the payroll's own trips afterwards.
func (s *Service) Trips(ctx context.Context, sess *session.Session, row Row) ([]TripLine, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	var (
		trips []TripLine
		err   error
	)

	if row.PayrollID == nil {
		trips, err = s.gw.PreviewTrips(ctx, sess, row.DriverID, row.Period)
	} else {
		trips, err = s.gw.PayrollTrips(ctx, sess, *row.PayrollID)
	}

	if err != nil {
		return nil, fmt.Errorf("loading trips for driver %d: %w", row.DriverID, err)
	}

	return trips, nil
}

// Generate creates the payroll of a PREVIEW row. A payroll that already
// exists for the driver and period is reported through AlreadyExists.
func (s *Service) Generate(ctx context.Context, sess *session.Session, row Row, view Period) (Outcome, error) {
	if err := gate(sess, row, ActionGenerate); err != nil {
		return Outcome{}, err
	}

	if row.DriverID == 0 {
		return Outcome{}, fmt.Errorf("%w: driver id", ErrMissingField)
	}

	var out Outcome

	id, err := s.gw.Generate(ctx, sess, GenerateParams{DriverID: row.DriverID, Period: row.Period})

	switch {
	case errors.Is(err, ErrConflict):
		out.AlreadyExists = true
	case err != nil:
		return Outcome{}, fmt.Errorf("generating payroll: %w", err)
	default:
		out.PayrollID = &id
	}

	return s.reload(ctx, sess, view, out)
}

// GenerateBatch generates every PREVIEW payroll of the period in one call.
// Rows that already have a payroll are left untouched and reported as skipped.
func (s *Service) GenerateBatch(ctx context.Context, sess *session.Session, period Period) (Outcome, error) {
	if err := requireSession(sess); err != nil {
		return Outcome{}, err
	}

	report, err := s.gw.GenerateBatch(ctx, sess, BatchParams{Period: period, SkipExisting: true})
	if err != nil {
		return Outcome{}, fmt.Errorf("generating payroll batch: %w", err)
	}

	return s.reload(ctx, sess, period, Outcome{Batch: &report})
}

// Save persists the discrepancy note and then the effective weight of every trip.
func (s *Service) Save(ctx context.Context, sess *session.Session, row Row, note string, trips []TripLine, view Period) (Outcome, error) {
	if err := gate(sess, row, ActionSave); err != nil {
		return Outcome{}, err
	}

	if row.PayrollID == nil {
		return Outcome{}, ErrNotGenerated
	}

	id := *row.PayrollID

	if err := s.gw.UpdateNote(ctx, sess, id, strings.TrimSpace(note)); err != nil {
		return Outcome{}, fmt.Errorf("saving discrepancy note: %w", err)
	}

	if len(trips) > 0 {
		if err := s.gw.UpdateTripWeights(ctx, sess, id, Weights(trips)); err != nil {
			return Outcome{}, fmt.Errorf("saving trip weights: %w", err)
		}
	}

	return s.reload(ctx, sess, view, Outcome{PayrollID: &id})
}

func (s *Service) Approve(ctx context.Context, sess *session.Session, row Row, view Period) (Outcome, error) {
	if err := gate(sess, row, ActionApprove); err != nil {
		return Outcome{}, err
	}

	if row.PayrollID == nil {
		return Outcome{}, ErrNotGenerated
	}

	id := *row.PayrollID

	if err := s.gw.Approve(ctx, sess, id); err != nil {
		return Outcome{}, fmt.Errorf("approving payroll: %w", err)
	}

	return s.reload(ctx, sess, view, Outcome{PayrollID: &id})
}

// Pay records a payout. The resulting status is whatever the backend reports.
func (s *Service) Pay(ctx context.Context, sess *session.Session, row Row, payment Payment, view Period) (Outcome, error) {
	if err := gate(sess, row, ActionPay); err != nil {
		return Outcome{}, err
	}

	if row.PayrollID == nil {
		return Outcome{}, ErrNotGenerated
	}

	if err := ValidatePayment(payment); err != nil {
		return Outcome{}, err
	}

	id := *row.PayrollID

	receipt, err := s.gw.Pay(ctx, sess, id, payment)
	if err != nil {
		return Outcome{}, fmt.Errorf("paying payroll: %w", err)
	}

	return s.reload(ctx, sess, view, Outcome{PayrollID: &id, Receipt: &receipt})
}

// ValidatePayment checks the payout preconditions.
func ValidatePayment(p Payment) error {
	if Round2(p.Amount) <= 0 {
		return ErrInvalidAmount
	}

	if len(p.ProofImage) == 0 {
		return ErrMissingProof
	}

	return nil
}

// Weights lists the effective weight of each trip for persistence.
func Weights(trips []TripLine) []TripWeight {
	out := make([]TripWeight, 0, len(trips))
	for _, t := range trips {
		out = append(out, TripWeight{TripID: t.TripID, WeightKg: t.EffectiveWeightKg()})
	}

	return out
}

func (s *Service) reload(ctx context.Context, sess *session.Session, view Period, out Outcome) (Outcome, error) {
	rows, err := s.gw.Overview(ctx, sess, view)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}

	out.Rows = rows

	return out, nil
}

func gate(sess *session.Session, row Row, action Action) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	if !row.Status.Allows(action) {
		return fmt.Errorf("%w: cannot %s a %s payroll", ErrActionNotAllowed, action, row.Status)
	}

	return nil
}

func requireSession(sess *session.Session) error {
	_, err := sess.Bearer()
	return err
}
