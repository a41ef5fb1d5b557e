package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/haulbook/internal/export"
	"github.com/MrJamesThe3rd/haulbook/internal/http/respond"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/export.csv", h.download(export.FormatCSV))
	r.Get("/export.xlsx", h.download(export.FormatXLSX))
	r.Get("/export/summary", h.summary)
}

func parseRequest(r *http.Request, format export.Format) (export.Request, error) {
	q := r.URL.Query()

	period, err := payroll.ParsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		return export.Request{}, err
	}

	req := export.Request{Period: period, Format: format}

	if s := q.Get("status"); s != "" {
		if req.Status, err = payroll.ParseStatus(s); err != nil {
			return export.Request{}, err
		}
	}

	return req, nil
}

func (h *Handler) download(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r, format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sess, err := session.FromContext(r.Context())
		if err != nil {
			respond.Error(w, err)
			return
		}

		// Buffered so a failed load still gets a proper error status.
		var buf bytes.Buffer

		n, err := h.svc.Export(r.Context(), sess, req, &buf)
		if err != nil {
			respond.Error(w, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename()))
		w.Header().Set("X-Row-Count", strconv.Itoa(n))

		if _, err := buf.WriteTo(w); err != nil {
			slog.Error("failed to write export", "error", err)
		}
	}
}

type summaryResponse struct {
	Rows    int    `json:"rows"`
	Summary string `json:"summary"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, export.FormatCSV)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	rows, err := h.svc.Rows(r.Context(), sess, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, summaryResponse{Rows: len(rows), Summary: export.Summary(rows)})
}
