package weighticket

import (
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
)

// Override is a ticket weight proposed for a trip.
type Override struct {
	TripID     int64
	ReceiptNo  string
	PreviousKg float64
	WeightKg   float64
}

// Changed reports whether applying the override alters the effective weight.
func (o Override) Changed() bool {
	return payroll.Round2(o.PreviousKg) != payroll.Round2(o.WeightKg)
}

// MatchResult splits the tickets of an export by whether they belong to the payroll.
type MatchResult struct {
	Overrides  []Override
	Unmatched  []Ticket
	Duplicates []Ticket // later tickets repeating a receipt already matched
}

// Match pairs tickets with trips by receipt number. Only the first ticket
// for a receipt is used.
func Match(trips []payroll.TripLine, tickets []Ticket) MatchResult {
	byReceipt := make(map[string]payroll.TripLine, len(trips))
	for _, t := range trips {
		if t.ReceiptNo != "" {
			byReceipt[t.ReceiptNo] = t
		}
	}

	res := MatchResult{Overrides: []Override{}}
	seen := make(map[string]bool)

	for _, tk := range tickets {
		trip, ok := byReceipt[tk.ReceiptNo]
		if !ok {
			res.Unmatched = append(res.Unmatched, tk)
			continue
		}

		if seen[tk.ReceiptNo] {
			res.Duplicates = append(res.Duplicates, tk)
			continue
		}

		seen[tk.ReceiptNo] = true

		res.Overrides = append(res.Overrides, Override{
			TripID:     trip.TripID,
			ReceiptNo:  tk.ReceiptNo,
			PreviousKg: trip.EffectiveWeightKg(),
			WeightKg:   payroll.Round2(tk.NetWeightKg),
		})
	}

	return res
}

// Apply matches tickets against the reconciliation's trips and sets the
// changed weights locally. Nothing is persisted until the payroll is saved.
func Apply(rec *payroll.Reconciliation, tickets []Ticket) (MatchResult, error) {
	if !rec.Editable() {
		return MatchResult{}, fmt.Errorf("%w: weights of a %s payroll are read-only", payroll.ErrActionNotAllowed, rec.Row().Status)
	}

	res := Match(rec.Trips(), tickets)

	var errs []error

	for _, o := range res.Overrides {
		if !o.Changed() {
			continue
		}

		if err := rec.SetWeight(o.TripID, o.WeightKg); err != nil {
			errs = append(errs, fmt.Errorf("receipt %s: %w", o.ReceiptNo, err))
		}
	}

	return res, errors.Join(errs...)
}
