package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/http/middleware"
	"github.com/MrJamesThe3rd/haulbook/internal/http/respond"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type Handler struct {
	manager *session.Manager
}

func NewHandler(manager *session.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.login)
	r.Delete("/", h.logout)
}

type loginRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Operator    string     `json:"operator,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(s *session.Session) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID,
		Operator:    s.Operator,
		Permissions: s.Permissions,
		CreatedAt:   s.CreatedAt,
	}

	if !s.ExpiresAt.IsZero() {
		resp.ExpiresAt = &s.ExpiresAt
	}

	return resp
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s, err := h.manager.Login(r.Context(), req.Token)
	if err != nil {
		respond.Error(w, err)
		return
	}

	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.ID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}

	if !s.ExpiresAt.IsZero() {
		cookie.Expires = s.ExpiresAt
	}

	http.SetCookie(w, cookie)
	respond.JSON(w, http.StatusCreated, toResponse(s))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(middleware.SessionHeader)
	if c, err := r.Cookie(middleware.SessionCookie); err == nil && raw == "" {
		raw = c.Value
	}

	if id, err := uuid.Parse(raw); err == nil {
		if err := h.manager.Logout(r.Context(), id); err != nil {
			respond.Error(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
