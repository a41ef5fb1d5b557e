package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
)

// ContractVersion names the response shapes this client was written against.
// Field names match case-insensitively, so PascalCase and camelCase
// payloads decode the same way.
const ContractVersion = "v1"

var warnedShapes sync.Map

// decode reads a response body into out. Fields outside the contract are
// logged once per shape and otherwise ignored.
func decode(r io.Reader, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()

	err = strict.Decode(out)
	if err == nil {
		return nil
	}

	if !strings.HasPrefix(err.Error(), "json: unknown field") {
		return fmt.Errorf("decoding %s response: %w", shapeName(out), err)
	}

	shape := shapeName(out)
	if _, seen := warnedShapes.LoadOrStore(shape, struct{}{}); !seen {
		slog.Warn("backend response has fields outside contract",
			"contract", ContractVersion,
			"shape", shape,
			"detail", err.Error(),
		)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", shape, err)
	}

	return nil
}

func shapeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}

	if t == nil {
		return "unknown"
	}

	return t.Name()
}

type overviewRowV1 struct {
	PayrollID       *int64  `json:"payrollId"`
	DriverID        int64   `json:"driverId"`
	DriverName      string  `json:"driverName"`
	PeriodStart     string  `json:"periodStart"`
	PeriodEnd       string  `json:"periodEnd"`
	TripCount       int     `json:"tripCount"`
	TotalWeightKg   float64 `json:"totalWeightKg"`
	RatePerKg       float64 `json:"ratePerKg"`
	Payable         float64 `json:"payable"`
	PaidAmount      float64 `json:"paidAmount"`
	Status          string  `json:"status"`
	GeneratedAt     *string `json:"generatedAt"`
	DiscrepancyNote *string `json:"discrepancyNote"`
}

type tripLineV1 struct {
	HaulingTripID   int64    `json:"haulingTripId"`
	ClientName      string   `json:"clientName"`
	ClientRatePerKg float64  `json:"clientRatePerKg"`
	WasteType       string   `json:"wasteType"`
	CompletedAt     *string  `json:"completedAt"`
	WeightKg        float64  `json:"weightKg"`
	EditedWeightKg  *float64 `json:"editedWeightKg"`
	ReceiptNo       *string  `json:"receiptNo"`
	Status          string   `json:"status"`
}

type generateRequestV1 struct {
	DriverID    int64  `json:"driverId"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

type generateResponseV1 struct {
	PayrollID int64  `json:"payrollId"`
	Status    string `json:"status"`
}

type batchRequestV1 struct {
	PeriodStart  string `json:"periodStart"`
	PeriodEnd    string `json:"periodEnd"`
	SkipExisting bool   `json:"skipExisting"`
}

type batchItemV1 struct {
	DriverID   int64  `json:"driverId"`
	DriverName string `json:"driverName"`
	PayrollID  *int64 `json:"payrollId"`
	Reason     string `json:"reason"`
}

type batchResponseV1 struct {
	Generated       []batchItemV1 `json:"generated"`
	SkippedExisting []batchItemV1 `json:"skippedExisting"`
	Failed          []batchItemV1 `json:"failed"`
}

type noteRequestV1 struct {
	DiscrepancyNote string `json:"discrepancyNote"`
}

type tripWeightV1 struct {
	HaulingTripID int64   `json:"haulingTripId"`
	WeightKg      float64 `json:"weightKg"`
}

type tripWeightsRequestV1 struct {
	Trips []tripWeightV1 `json:"trips"`
}

type payRequestV1 struct {
	Amount      float64 `json:"amount"`
	Base64Image string  `json:"base64Image"`
	ReferenceNo string  `json:"referenceNo"`
}

type payResponseV1 struct {
	Status     string  `json:"status"`
	PaidAmount float64 `json:"paidAmount"`
}

type auditEntryV1 struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Entity    string `json:"entity"`
	EntityID  string `json:"entityId"`
	Details   string `json:"details"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// toRow normalizes an overview row and enforces the payroll id invariant:
// absent while PREVIEW, present in every later status.
func (v overviewRowV1) toRow() (payroll.Row, error) {
	status, err := payroll.ParseStatus(v.Status)
	if err != nil {
		return payroll.Row{}, err
	}

	if status == payroll.StatusPreview && v.PayrollID != nil {
		return payroll.Row{}, fmt.Errorf("preview row for driver %d carries payroll id %d", v.DriverID, *v.PayrollID)
	}

	if status != payroll.StatusPreview && v.PayrollID == nil {
		return payroll.Row{}, fmt.Errorf("%s row for driver %d has no payroll id", status, v.DriverID)
	}

	start, err := parseTime(v.PeriodStart)
	if err != nil {
		return payroll.Row{}, fmt.Errorf("period start: %w", err)
	}

	end, err := parseTime(v.PeriodEnd)
	if err != nil {
		return payroll.Row{}, fmt.Errorf("period end: %w", err)
	}

	period, err := payroll.NewPeriod(start, end)
	if err != nil {
		return payroll.Row{}, err
	}

	row := payroll.Row{
		PayrollID:     v.PayrollID,
		DriverID:      v.DriverID,
		DriverName:    strings.TrimSpace(v.DriverName),
		Period:        period,
		TripCount:     v.TripCount,
		TotalWeightKg: payroll.Round2(v.TotalWeightKg),
		ReferenceRate: v.RatePerKg,
		Payable:       payroll.Round2(v.Payable),
		PaidAmount:    payroll.Round2(v.PaidAmount),
		Status:        status,
	}

	if v.DiscrepancyNote != nil {
		row.DiscrepancyNote = *v.DiscrepancyNote
	}

	if v.GeneratedAt != nil && *v.GeneratedAt != "" {
		at, err := parseTime(*v.GeneratedAt)
		if err != nil {
			return payroll.Row{}, fmt.Errorf("generated at: %w", err)
		}

		row.GeneratedAt = &at
	}

	return row, nil
}

func (v tripLineV1) toTripLine() payroll.TripLine {
	t := payroll.TripLine{
		TripID:           v.HaulingTripID,
		ClientName:       strings.TrimSpace(v.ClientName),
		ClientRatePerKg:  v.ClientRatePerKg,
		WasteType:        v.WasteType,
		OriginalWeightKg: v.WeightKg,
		EditedWeightKg:   v.EditedWeightKg,
		StatusText:       v.Status,
	}

	if v.ReceiptNo != nil {
		t.ReceiptNo = strings.TrimSpace(*v.ReceiptNo)
	}

	if v.CompletedAt != nil {
		if at, err := parseTime(*v.CompletedAt); err == nil {
			t.CompletedAt = at
		} else {
			slog.Warn("ignoring trip completion time", "trip_id", v.HaulingTripID, "error", err)
		}
	}

	return t
}

func toBatchItems(in []batchItemV1) []payroll.BatchItem {
	out := make([]payroll.BatchItem, 0, len(in))
	for _, it := range in {
		out = append(out, payroll.BatchItem{
			DriverID:   it.DriverID,
			DriverName: it.DriverName,
			PayrollID:  it.PayrollID,
			Reason:     it.Reason,
		})
	}

	return out
}
