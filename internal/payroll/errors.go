package payroll

import "errors"

var (
	ErrActionNotAllowed = errors.New("action not allowed in current payroll status")
	ErrActionInFlight   = errors.New("action already in progress")
	ErrNotGenerated     = errors.New("payroll has not been generated")
	ErrInvalidAmount    = errors.New("Amount must be > 0")
	ErrMissingProof     = errors.New("proof image is required")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidPeriod    = errors.New("invalid payroll period")
	ErrInvalidWeight    = errors.New("weight must be a finite number >= 0")
	ErrTripNotFound     = errors.New("trip not found in payroll")

	// ErrConflict is matched by gateway errors reporting that the payroll
	// already exists for the driver and period.
	ErrConflict = errors.New("payroll already exists")

	// ErrReloadFailed reports that a mutation was accepted by the backend but
	// the overview could not be reloaded afterwards. The Outcome returned with
	// it is valid except for Rows.
	ErrReloadFailed = errors.New("change saved but the payroll overview could not be reloaded")
)
