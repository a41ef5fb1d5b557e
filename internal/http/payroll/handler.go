package payroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/MrJamesThe3rd/haulbook/internal/http/respond"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

const maxUpload = 10 << 20

type Handler struct {
	svc     *payroll.Service
	tickets *weighticket.Parser

	// inflight coalesces identical generate and approve calls issued while
	// the first one is still running.
	inflight singleflight.Group
	timeout  time.Duration
}

// NewHandler builds the payroll handler. timeout bounds coalesced calls,
// which run detached from the request that started them.
func NewHandler(svc *payroll.Service, tickets *weighticket.Parser, timeout time.Duration) *Handler {
	return &Handler{svc: svc, tickets: tickets, timeout: timeout}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.overview)
	r.Get("/preview/trips", h.previewTrips)
	r.Post("/generate", h.generate)
	r.Post("/generate/batch", h.generateBatch)
	r.Get("/{id}/trips", h.payrollTrips)
	r.Put("/{id}", h.save)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/pay", h.pay)
	r.Post("/{id}/weight-tickets", h.importTickets)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	rows, err := h.svc.Overview(r.Context(), sess, period)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toRowResponseList(payroll.FilterByStatus(rows, status)))
}

func (h *Handler) previewTrips(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	driverID, err := strconv.ParseInt(r.URL.Query().Get("driver_id"), 10, 64)
	if err != nil || driverID <= 0 {
		http.Error(w, "invalid driver_id", http.StatusBadRequest)
		return
	}

	h.writeTrips(w, r, payroll.Row{DriverID: driverID, Period: period, Status: payroll.StatusPreview})
}

func (h *Handler) payrollTrips(w http.ResponseWriter, r *http.Request) {
	id, err := payrollID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeTrips(w, r, payroll.Row{PayrollID: &id})
}

func (h *Handler) writeTrips(w http.ResponseWriter, r *http.Request, row payroll.Row) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	trips, err := h.svc.Trips(r.Context(), sess, row)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toTripsResponse(trips))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := req.period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	row := payroll.Row{DriverID: req.DriverID, Period: period, Status: req.Status}
	key := fmt.Sprintf("%s:generate:%d:%s", sess.ID, req.DriverID, period)

	h.coalesce(w, r, key, http.StatusCreated, func(ctx context.Context) (payroll.Outcome, error) {
		return h.svc.Generate(ctx, sess, row, period)
	})
}

func (h *Handler) generateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := req.period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	key := fmt.Sprintf("%s:batch:%s", sess.ID, period)

	h.coalesce(w, r, key, http.StatusOK, func(ctx context.Context) (payroll.Outcome, error) {
		return h.svc.GenerateBatch(ctx, sess, period)
	})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	id, err := payrollID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := req.period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	row := payroll.Row{PayrollID: &id, Period: period, Status: req.Status}

	out, err := h.svc.Save(r.Context(), sess, row, req.DiscrepancyNote, req.trips(), period)
	writeOutcome(w, http.StatusOK, out, err)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := payrollID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := req.period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	row := payroll.Row{PayrollID: &id, Period: period, Status: req.Status}
	key := fmt.Sprintf("%s:approve:%d", sess.ID, id)

	h.coalesce(w, r, key, http.StatusOK, func(ctx context.Context) (payroll.Outcome, error) {
		return h.svc.Approve(ctx, sess, row, period)
	})
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := payrollID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	form := payForm{
		periodRequest: periodRequest{From: r.FormValue("from"), To: r.FormValue("to")},
		Status:        payroll.Status(r.FormValue("status")),
		ReferenceNo:   strings.TrimSpace(r.FormValue("reference_no")),
	}

	form.Amount, err = strconv.ParseFloat(strings.TrimSpace(r.FormValue("amount")), 64)
	if err != nil {
		http.Error(w, "amount must be a number", http.StatusBadRequest)
		return
	}

	if err := validateRequest(form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := form.period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proof, err := formFile(r, "proof")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	row := payroll.Row{PayrollID: &id, Period: period, Status: form.Status}
	payment := payroll.Payment{Amount: form.Amount, ProofImage: proof, ReferenceNo: form.ReferenceNo}

	out, err := h.svc.Pay(r.Context(), sess, row, payment, period)
	writeOutcome(w, http.StatusOK, out, err)
}

// importTickets matches a weigh-bridge export against the payroll's trips and
// returns the proposed weights. Nothing is saved; the caller submits the
// weights it accepts through a save.
func (h *Handler) importTickets(w http.ResponseWriter, r *http.Request) {
	id, err := payrollID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	form := statusForm{Status: payroll.Status(r.FormValue("status"))}
	if err := validateRequest(form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tickets, err := h.tickets.Parse(file)
	if err != nil {
		http.Error(w, "failed to parse weigh tickets: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	row := payroll.Row{PayrollID: &id, Status: form.Status}

	trips, err := h.svc.Trips(r.Context(), sess, row)
	if err != nil {
		respond.Error(w, err)
		return
	}

	rec := payroll.NewReconciliation(row, trips)

	res, err := weighticket.Apply(rec, tickets)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toTicketImportResponse(res, rec.Trips()))
}

// coalesce runs fn once per key for all callers waiting on it. The shared
// call is detached from the first caller's cancellation.
func (h *Handler) coalesce(w http.ResponseWriter, r *http.Request, key string, status int, fn func(ctx context.Context) (payroll.Outcome, error)) {
	v, err, _ := h.inflight.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()

		return fn(ctx)
	})

	out, _ := v.(payroll.Outcome)
	if out.AlreadyExists {
		status = http.StatusOK
	}

	writeOutcome(w, status, out, err)
}

// writeOutcome answers a mutation. A mutation that went through but whose
// reload failed is still a success, reported with a warning and no rows.
func writeOutcome(w http.ResponseWriter, status int, out payroll.Outcome, err error) {
	if err != nil && !errors.Is(err, payroll.ErrReloadFailed) {
		respond.Error(w, err)
		return
	}

	resp := toOutcomeResponse(out)
	if err != nil {
		slog.Warn("payroll changed but overview reload failed", "error", err)
		resp.Warning = err.Error()
	}

	respond.JSON(w, status, resp)
}

// formFile reads an uploaded file. A missing file reads as empty.
func formFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}

	return data, nil
}
