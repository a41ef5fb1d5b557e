package audit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/http/respond"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type Handler struct {
	src audit.Source
}

func NewHandler(src audit.Source) *Handler {
	return &Handler{src: src}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type entryResponse struct {
	ID       int64     `json:"id"`
	At       time.Time `json:"at"`
	User     string    `json:"user"`
	Action   string    `json:"action"`
	Entity   string    `json:"entity,omitempty"`
	EntityID string    `json:"entity_id,omitempty"`
	Details  string    `json:"details,omitempty"`
}

func toResponseList(entries []audit.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryResponse(e)
	}

	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Action: q.Get("action"),
		User:   q.Get("user"),
	}

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		filter.From = t
	}

	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		filter.To = t
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	entries, err := h.src.AuditLogs(r.Context(), sess, filter.Normalize())
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(entries))
}
