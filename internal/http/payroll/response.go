package payroll

import (
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

type rowResponse struct {
	PayrollID       *int64           `json:"payroll_id,omitempty"`
	DriverID        int64            `json:"driver_id"`
	DriverName      string           `json:"driver_name"`
	PeriodStart     string           `json:"period_start"`
	PeriodEnd       string           `json:"period_end"`
	TripCount       int              `json:"trip_count"`
	TotalWeightKg   float64          `json:"total_weight_kg"`
	ReferenceRate   float64          `json:"reference_rate"`
	Payable         float64          `json:"payable"`
	PaidAmount      float64          `json:"paid_amount"`
	Balance         float64          `json:"balance"`
	Status          payroll.Status   `json:"status"`
	GeneratedAt     *time.Time       `json:"generated_at,omitempty"`
	DiscrepancyNote string           `json:"discrepancy_note,omitempty"`
	Actions         []payroll.Action `json:"actions"`
}

func toRowResponse(r payroll.Row) rowResponse {
	actions := r.Status.Actions()
	if actions == nil {
		actions = []payroll.Action{}
	}

	return rowResponse{
		PayrollID:       r.PayrollID,
		DriverID:        r.DriverID,
		DriverName:      r.DriverName,
		PeriodStart:     r.Period.Start.Format(time.DateOnly),
		PeriodEnd:       r.Period.End.Format(time.DateOnly),
		TripCount:       r.TripCount,
		TotalWeightKg:   r.TotalWeightKg,
		ReferenceRate:   r.ReferenceRate,
		Payable:         r.Payable,
		PaidAmount:      r.PaidAmount,
		Balance:         r.Balance(),
		Status:          r.Status,
		GeneratedAt:     r.GeneratedAt,
		DiscrepancyNote: r.DiscrepancyNote,
		Actions:         actions,
	}
}

func toRowResponseList(rows []payroll.Row) []rowResponse {
	resp := make([]rowResponse, len(rows))
	for i, r := range rows {
		resp[i] = toRowResponse(r)
	}

	return resp
}

type tripResponse struct {
	TripID            int64     `json:"trip_id"`
	ClientName        string    `json:"client_name"`
	ClientRatePerKg   float64   `json:"client_rate_per_kg"`
	WasteType         string    `json:"waste_type,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
	OriginalWeightKg  float64   `json:"original_weight_kg"`
	EditedWeightKg    *float64  `json:"edited_weight_kg,omitempty"`
	EffectiveWeightKg float64   `json:"effective_weight_kg"`
	ReceiptNo         string    `json:"receipt_no,omitempty"`
	StatusText        string    `json:"status_text,omitempty"`
}

type subtotalResponse struct {
	ClientName      string  `json:"client_name"`
	RatePerKg       float64 `json:"rate_per_kg"`
	TripCount       int     `json:"trip_count"`
	TotalWeightKg   float64 `json:"total_weight_kg"`
	SubtotalPayable float64 `json:"subtotal_payable"`
}

type totalsResponse struct {
	TripCount       int                `json:"trip_count"`
	TotalWeightKg   float64            `json:"total_weight_kg"`
	ComputedPayable float64            `json:"computed_payable"`
	Subtotals       []subtotalResponse `json:"subtotals"`
}

type tripsResponse struct {
	Trips  []tripResponse `json:"trips"`
	Totals totalsResponse `json:"totals"`
}

func toTripsResponse(trips []payroll.TripLine) tripsResponse {
	resp := tripsResponse{
		Trips:  make([]tripResponse, len(trips)),
		Totals: toTotalsResponse(payroll.Aggregate(trips)),
	}

	for i, t := range trips {
		resp.Trips[i] = tripResponse{
			TripID:            t.TripID,
			ClientName:        t.ClientName,
			ClientRatePerKg:   t.ClientRatePerKg,
			WasteType:         t.WasteType,
			CompletedAt:       t.CompletedAt,
			OriginalWeightKg:  t.OriginalWeightKg,
			EditedWeightKg:    t.EditedWeightKg,
			EffectiveWeightKg: t.EffectiveWeightKg(),
			ReceiptNo:         t.ReceiptNo,
			StatusText:        t.StatusText,
		}
	}

	return resp
}

func toTotalsResponse(t payroll.Totals) totalsResponse {
	resp := totalsResponse{
		TripCount:       t.TripCount,
		TotalWeightKg:   t.TotalWeightKg,
		ComputedPayable: t.ComputedPayable,
		Subtotals:       make([]subtotalResponse, len(t.Subtotals)),
	}

	for i, s := range t.Subtotals {
		resp.Subtotals[i] = subtotalResponse(s)
	}

	return resp
}

type batchItemResponse struct {
	DriverID   int64  `json:"driver_id"`
	DriverName string `json:"driver_name,omitempty"`
	PayrollID  *int64 `json:"payroll_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type batchResponse struct {
	Generated       []batchItemResponse `json:"generated"`
	SkippedExisting []batchItemResponse `json:"skipped_existing"`
	Failed          []batchItemResponse `json:"failed"`
}

func toBatchItems(items []payroll.BatchItem) []batchItemResponse {
	resp := make([]batchItemResponse, len(items))
	for i, it := range items {
		resp[i] = batchItemResponse(it)
	}

	return resp
}

type receiptResponse struct {
	Status     payroll.Status `json:"status"`
	PaidAmount float64        `json:"paid_amount"`
}

// outcomeResponse carries the reloaded overview so callers never derive row
// state themselves.
type outcomeResponse struct {
	PayrollID     *int64           `json:"payroll_id,omitempty"`
	AlreadyExists bool             `json:"already_exists,omitempty"`
	Batch         *batchResponse   `json:"batch,omitempty"`
	Receipt       *receiptResponse `json:"receipt,omitempty"`
	Rows          []rowResponse    `json:"rows"`
	// Warning is set when the change went through but the rows could not be
	// reloaded; the caller must refresh before acting on the payroll again.
	Warning string `json:"warning,omitempty"`
}

func toOutcomeResponse(out payroll.Outcome) outcomeResponse {
	resp := outcomeResponse{
		PayrollID:     out.PayrollID,
		AlreadyExists: out.AlreadyExists,
		Rows:          toRowResponseList(out.Rows),
	}

	if out.Batch != nil {
		resp.Batch = &batchResponse{
			Generated:       toBatchItems(out.Batch.Generated),
			SkippedExisting: toBatchItems(out.Batch.SkippedExisting),
			Failed:          toBatchItems(out.Batch.Failed),
		}
	}

	if out.Receipt != nil {
		resp.Receipt = &receiptResponse{
			Status:     out.Receipt.Status,
			PaidAmount: out.Receipt.PaidAmount,
		}
	}

	return resp
}

type overrideResponse struct {
	TripID     int64   `json:"trip_id"`
	ReceiptNo  string  `json:"receipt_no"`
	PreviousKg float64 `json:"previous_kg"`
	WeightKg   float64 `json:"weight_kg"`
	Changed    bool    `json:"changed"`
}

type ticketResponse struct {
	ReceiptNo   string  `json:"receipt_no"`
	NetWeightKg float64 `json:"net_weight_kg"`
	Line        int     `json:"line"`
}

type ticketImportResponse struct {
	Overrides  []overrideResponse `json:"overrides"`
	Unmatched  []ticketResponse   `json:"unmatched"`
	Duplicates []ticketResponse   `json:"duplicates"`
	tripsResponse
}

func toTickets(tickets []weighticket.Ticket) []ticketResponse {
	resp := make([]ticketResponse, len(tickets))
	for i, t := range tickets {
		resp[i] = ticketResponse{ReceiptNo: t.ReceiptNo, NetWeightKg: t.NetWeightKg, Line: t.Line}
	}

	return resp
}

func toTicketImportResponse(res weighticket.MatchResult, trips []payroll.TripLine) ticketImportResponse {
	resp := ticketImportResponse{
		Overrides:     make([]overrideResponse, len(res.Overrides)),
		Unmatched:     toTickets(res.Unmatched),
		Duplicates:    toTickets(res.Duplicates),
		tripsResponse: toTripsResponse(trips),
	}

	for i, o := range res.Overrides {
		resp.Overrides[i] = overrideResponse{
			TripID:     o.TripID,
			ReceiptNo:  o.ReceiptNo,
			PreviousKg: o.PreviousKg,
			WeightKg:   o.WeightKg,
			Changed:    o.Changed(),
		}
	}

	return resp
}
