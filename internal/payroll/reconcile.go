package payroll

import (
	"fmt"
	"sync"
)

// Reconciliation holds one payroll row opened for review: its trips with any
// unsaved weight overrides, the draft discrepancy note and the actions
// currently in flight. Trips are never added or removed locally.
type Reconciliation struct {
	mu       sync.Mutex
	row      Row
	trips    []TripLine
	saved    map[int64]*float64
	note     string
	inflight map[Action]bool
}

func NewReconciliation(row Row, trips []TripLine) *Reconciliation {
	r := &Reconciliation{
		row:      row,
		note:     row.DiscrepancyNote,
		inflight: make(map[Action]bool),
	}
	r.load(trips)

	return r
}

func (r *Reconciliation) load(trips []TripLine) {
	r.trips = make([]TripLine, len(trips))
	r.saved = make(map[int64]*float64, len(trips))

	for i, t := range trips {
		t.EditedWeightKg = copyWeight(t.EditedWeightKg)
		r.trips[i] = t
		r.saved[t.TripID] = copyWeight(t.EditedWeightKg)
	}
}

// Refresh replaces the row and trips with freshly loaded backend state,
// discarding unsaved edits.
func (r *Reconciliation) Refresh(row Row, trips []TripLine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.row = row
	r.note = row.DiscrepancyNote
	r.load(trips)
}

func (r *Reconciliation) Row() Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.row
}

// Trips returns a copy of the trip lines including local edits.
func (r *Reconciliation) Trips() []TripLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TripLine, len(r.trips))
	for i, t := range r.trips {
		t.EditedWeightKg = copyWeight(t.EditedWeightKg)
		out[i] = t
	}

	return out
}

// Editable reports whether weights and note may be changed, which is only
// the case while the changes can be saved.
func (r *Reconciliation) Editable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.row.Status.Allows(ActionSave)
}

// SetWeight overrides the weight of a single trip. Other trips are untouched.
func (r *Reconciliation) SetWeight(tripID int64, kg float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.row.Status.Allows(ActionSave) {
		return fmt.Errorf("%w: weights of a %s payroll are read-only", ErrActionNotAllowed, r.row.Status)
	}

	if !ValidWeight(kg) {
		return ErrInvalidWeight
	}

	i := r.index(tripID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrTripNotFound, tripID)
	}

	w := Round2(kg)
	r.trips[i].EditedWeightKg = &w

	return nil
}

// ResetWeight drops the local override of a trip, restoring the last loaded value.
func (r *Reconciliation) ResetWeight(tripID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(tripID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrTripNotFound, tripID)
	}

	r.trips[i].EditedWeightKg = copyWeight(r.saved[tripID])

	return nil
}

// TripByReceipt finds a trip by its weigh-bridge receipt number.
func (r *Reconciliation) TripByReceipt(receipt string) (TripLine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.trips {
		if receipt != "" && t.ReceiptNo == receipt {
			return t, true
		}
	}

	return TripLine{}, false
}

func (r *Reconciliation) Note() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.note
}

func (r *Reconciliation) SetNote(note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.row.Status.Allows(ActionSave) {
		return fmt.Errorf("%w: note of a %s payroll is read-only", ErrActionNotAllowed, r.row.Status)
	}

	r.note = note

	return nil
}

// Totals recomputes the aggregate over the current trip set.
func (r *Reconciliation) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Aggregate(r.trips)
}

// Dirty reports whether there are unsaved weight or note edits.
func (r *Reconciliation) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.note != r.row.DiscrepancyNote {
		return true
	}

	for _, t := range r.trips {
		if !sameWeight(t.EditedWeightKg, r.saved[t.TripID]) {
			return true
		}
	}

	return false
}

// Can reports whether the action is allowed now: permitted by the status
// and not already running.
func (r *Reconciliation) Can(a Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.row.Status.Allows(a) && !r.inflight[a]
}

// Begin marks the action in flight. It fails when the status forbids the
// action or the same action has not finished yet.
func (r *Reconciliation) Begin(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.row.Status.Allows(a) {
		return fmt.Errorf("%w: cannot %s a %s payroll", ErrActionNotAllowed, a, r.row.Status)
	}

	if r.inflight[a] {
		return fmt.Errorf("%w: %s", ErrActionInFlight, a)
	}

	r.inflight[a] = true

	return nil
}

// End clears the in-flight mark set by Begin.
func (r *Reconciliation) End(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inflight, a)
}

// Busy reports whether any action is in flight.
func (r *Reconciliation) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.inflight) > 0
}

func (r *Reconciliation) index(tripID int64) int {
	for i, t := range r.trips {
		if t.TripID == tripID {
			return i
		}
	}

	return -1
}

func copyWeight(w *float64) *float64 {
	if w == nil {
		return nil
	}

	v := *w

	return &v
}

func sameWeight(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return Round2(*a) == Round2(*b)
}
