package payroll

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type periodRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

func (p periodRequest) period() (payroll.Period, error) {
	return payroll.ParsePeriod(p.From, p.To)
}

type generateRequest struct {
	periodRequest
	DriverID int64          `json:"driver_id" validate:"required,gt=0"`
	Status   payroll.Status `json:"status" validate:"required,oneof=PREVIEW GENERATED APPROVED PARTIAL PAID"`
}

type batchRequest struct {
	periodRequest
}

type tripWeightRequest struct {
	TripID   int64   `json:"trip_id" validate:"required,gt=0"`
	WeightKg float64 `json:"weight_kg" validate:"gte=0"`
}

type saveRequest struct {
	periodRequest
	Status          payroll.Status      `json:"status" validate:"required,oneof=PREVIEW GENERATED APPROVED PARTIAL PAID"`
	DiscrepancyNote string              `json:"discrepancy_note" validate:"max=2000"`
	Trips           []tripWeightRequest `json:"trips" validate:"dive"`
}

// trips turns the submitted weights into trip lines whose effective weight is
// the submitted value.
func (r saveRequest) trips() []payroll.TripLine {
	out := make([]payroll.TripLine, len(r.Trips))
	for i, t := range r.Trips {
		out[i] = payroll.TripLine{TripID: t.TripID, OriginalWeightKg: t.WeightKg}
	}

	return out
}

type approveRequest struct {
	periodRequest
	Status payroll.Status `json:"status" validate:"required,oneof=PREVIEW GENERATED APPROVED PARTIAL PAID"`
}

type payForm struct {
	periodRequest
	Status      payroll.Status `validate:"required,oneof=PREVIEW GENERATED APPROVED PARTIAL PAID"`
	Amount      float64
	ReferenceNo string `validate:"max=100"`
}

type statusForm struct {
	Status payroll.Status `validate:"required,oneof=PREVIEW GENERATED APPROVED PARTIAL PAID"`
}

// decodeJSON decodes and validates a request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return validateRequest(v)
}

func validateRequest(v any) error {
	err := validate.Struct(v)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}

	return errors.New(strings.Join(msgs, "; "))
}

func payrollID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid payroll id")
	}

	return id, nil
}

func queryPeriod(r *http.Request) (payroll.Period, error) {
	q := r.URL.Query()
	return periodRequest{From: q.Get("from"), To: q.Get("to")}.period()
}

// parseStatus reads the optional status filter.
func parseStatus(s string) (payroll.Status, error) {
	if s == "" {
		return "", nil
	}

	return payroll.ParseStatus(s)
}
