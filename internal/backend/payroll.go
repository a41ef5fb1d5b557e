package backend

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

var _ payroll.Gateway = (*Client)(nil)

func periodQuery(p payroll.Period) url.Values {
	q := url.Values{}
	q.Set("from", formatDate(p.Start))
	q.Set("to", formatDate(p.End))

	return q
}

func payrollPath(id int64, suffix ...string) string {
	path := "/Accounting/payroll/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		path += "/" + s
	}

	return path
}

// Overview lists one row per driver for the period. Rows violating the
// contract are skipped and logged rather than failing the whole page.
func (c *Client) Overview(ctx context.Context, sess *session.Session, period payroll.Period) ([]payroll.Row, error) {
	var raw []overviewRowV1
	if err := c.do(ctx, sess, http.MethodGet, "/Accounting/payroll/overview", periodQuery(period), nil, &raw); err != nil {
		return nil, err
	}

	rows := make([]payroll.Row, 0, len(raw))

	for _, r := range raw {
		row, err := r.toRow()
		if err != nil {
			slog.Warn("skipping payroll row outside contract", "driver_id", r.DriverID, "error", err)
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func (c *Client) PreviewTrips(ctx context.Context, sess *session.Session, driverID int64, period payroll.Period) ([]payroll.TripLine, error) {
	q := periodQuery(period)
	q.Set("driverId", strconv.FormatInt(driverID, 10))

	var raw []tripLineV1
	if err := c.do(ctx, sess, http.MethodGet, "/Accounting/reports/payroll/drivers/details", q, nil, &raw); err != nil {
		return nil, err
	}

	return toTripLines(raw), nil
}

func (c *Client) PayrollTrips(ctx context.Context, sess *session.Session, payrollID int64) ([]payroll.TripLine, error) {
	var raw []tripLineV1
	if err := c.do(ctx, sess, http.MethodGet, payrollPath(payrollID, "trips"), nil, nil, &raw); err != nil {
		return nil, err
	}

	return toTripLines(raw), nil
}

func toTripLines(raw []tripLineV1) []payroll.TripLine {
	trips := make([]payroll.TripLine, 0, len(raw))
	for _, t := range raw {
		trips = append(trips, t.toTripLine())
	}

	return trips
}

// Generate creates a payroll. A duplicate answers 409, which matches payroll.ErrConflict.
func (c *Client) Generate(ctx context.Context, sess *session.Session, params payroll.GenerateParams) (int64, error) {
	body := generateRequestV1{
		DriverID:    params.DriverID,
		PeriodStart: formatDate(params.Period.Start),
		PeriodEnd:   formatDate(params.Period.End),
	}

	var resp generateResponseV1
	if err := c.do(ctx, sess, http.MethodPost, "/Accounting/payroll/generate", nil, body, &resp); err != nil {
		return 0, err
	}

	return resp.PayrollID, nil
}

func (c *Client) GenerateBatch(ctx context.Context, sess *session.Session, params payroll.BatchParams) (payroll.BatchReport, error) {
	body := batchRequestV1{
		PeriodStart:  formatDate(params.Period.Start),
		PeriodEnd:    formatDate(params.Period.End),
		SkipExisting: params.SkipExisting,
	}

	var resp batchResponseV1
	if err := c.do(ctx, sess, http.MethodPost, "/Accounting/payroll/generate/batch", nil, body, &resp); err != nil {
		return payroll.BatchReport{}, err
	}

	return payroll.BatchReport{
		Generated:       toBatchItems(resp.Generated),
		SkippedExisting: toBatchItems(resp.SkippedExisting),
		Failed:          toBatchItems(resp.Failed),
	}, nil
}

func (c *Client) UpdateNote(ctx context.Context, sess *session.Session, payrollID int64, note string) error {
	return c.do(ctx, sess, http.MethodPut, payrollPath(payrollID), nil, noteRequestV1{DiscrepancyNote: note}, nil)
}

func (c *Client) UpdateTripWeights(ctx context.Context, sess *session.Session, payrollID int64, weights []payroll.TripWeight) error {
	body := tripWeightsRequestV1{Trips: make([]tripWeightV1, 0, len(weights))}
	for _, w := range weights {
		body.Trips = append(body.Trips, tripWeightV1{HaulingTripID: w.TripID, WeightKg: w.WeightKg})
	}

	return c.do(ctx, sess, http.MethodPut, payrollPath(payrollID, "trips"), nil, body, nil)
}

func (c *Client) Approve(ctx context.Context, sess *session.Session, payrollID int64) error {
	return c.do(ctx, sess, http.MethodPost, payrollPath(payrollID, "approve"), nil, nil, nil)
}

// Pay posts the payout with the proof image base64 encoded.
func (c *Client) Pay(ctx context.Context, sess *session.Session, payrollID int64, payment payroll.Payment) (payroll.PaymentReceipt, error) {
	body := payRequestV1{
		Amount:      payroll.Round2(payment.Amount),
		Base64Image: base64.StdEncoding.EncodeToString(payment.ProofImage),
		ReferenceNo: payment.ReferenceNo,
	}

	var resp payResponseV1
	if err := c.do(ctx, sess, http.MethodPost, payrollPath(payrollID, "pay"), nil, body, &resp); err != nil {
		return payroll.PaymentReceipt{}, err
	}

	receipt := payroll.PaymentReceipt{PaidAmount: payroll.Round2(resp.PaidAmount)}
	if resp.Status == "" {
		return receipt, nil
	}

	// The payment is recorded at this point; the reloaded row carries the
	// status when the receipt's cannot be read.
	status, err := payroll.ParseStatus(resp.Status)
	if err != nil {
		slog.Warn("pay response with unknown status", "payroll_id", payrollID, "status", resp.Status, "error", err)
		return receipt, nil
	}

	receipt.Status = status

	return receipt, nil
}
