// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"librarium/internal/session"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID   uuid.UUID `json:"book_id"`
		UserID   uuid.UUID `json:"user_id"`
		IssuedOn string    `json:"issued_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	// Checkouts are for the authenticated user unless the request names
	// someone else (front-desk checkout on a member's behalf).
	userID := req.UserID
	if userID == uuid.Nil {
		sessionUser, ok := session.UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		userID = sessionUser
	}

	issuedOn, err := parseDate(req.IssuedOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "issued_on must be YYYY-MM-DD")
		return
	}

	loan, err := h.service.Checkout(r.Context(), userID, req.BookID, issuedOn)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	var req struct {
		ReturnedOn string `json:"returned_on"`
	}
	// An empty body means "returned today".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	returnedOn, err := parseDate(req.ReturnedOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "returned_on must be YYYY-MM-DD")
		return
	}

	loan, err := h.service.Return(r.Context(), loanID, returnedOn)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBookUnavailable), errors.Is(err, ErrAlreadyReturned):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("circulation request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(dateLayout, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
