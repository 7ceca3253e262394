// internal/circulation/handler_test.go
package circulation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/session"
)

// stubService lets handler tests script the service outcome.
type stubService struct {
	loan    *Loan
	records []*Record
	err     error

	gotUserID uuid.UUID
	gotBookID uuid.UUID
	gotLoanID uuid.UUID
}

func (s *stubService) Checkout(_ context.Context, userID, bookID uuid.UUID, _ time.Time) (*Loan, error) {
	s.gotUserID, s.gotBookID = userID, bookID
	return s.loan, s.err
}

func (s *stubService) Return(_ context.Context, loanID uuid.UUID, _ time.Time) (*Loan, error) {
	s.gotLoanID = loanID
	return s.loan, s.err
}

func (s *stubService) HasOpenLoanForUser(context.Context, uuid.UUID) (bool, error) {
	return false, s.err
}

func (s *stubService) HasOpenLoanForBook(context.Context, uuid.UUID) (bool, error) {
	return false, s.err
}

func (s *stubService) List(context.Context) ([]*Record, error) {
	return s.records, s.err
}

func newTestHandler(svc Service) *Handler {
	return NewHandler(svc, slog.New(slog.DiscardHandler))
}

func checkoutRequest(t *testing.T, body map[string]any, userID uuid.UUID) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/loans/checkout", bytes.NewReader(payload))
	return req.WithContext(session.WithUserID(req.Context(), userID))
}

func TestHandleCheckoutUsesSessionUser(t *testing.T) {
	sessionUser := uuid.New()
	bookID := uuid.New()
	svc := &stubService{loan: &Loan{ID: uuid.New(), UserID: sessionUser, BookID: bookID}}
	h := newTestHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, checkoutRequest(t, map[string]any{"book_id": bookID}, sessionUser))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, sessionUser, svc.gotUserID)
	assert.Equal(t, bookID, svc.gotBookID)
}

func TestHandleCheckoutHonorsExplicitUser(t *testing.T) {
	sessionUser := uuid.New()
	member := uuid.New()
	bookID := uuid.New()
	svc := &stubService{loan: &Loan{ID: uuid.New(), UserID: member, BookID: bookID}}
	h := newTestHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, checkoutRequest(t, map[string]any{"book_id": bookID, "user_id": member}, sessionUser))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, member, svc.gotUserID)
}

func TestHandleCheckoutRequiresBookID(t *testing.T) {
	h := newTestHandler(&stubService{})

	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, checkoutRequest(t, map[string]any{}, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCheckoutRejectsBadDate(t *testing.T) {
	h := newTestHandler(&stubService{})

	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, checkoutRequest(t, map[string]any{
		"book_id":   uuid.New(),
		"issued_on": "01/02/2025",
	}, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCheckoutErrorMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		want int
	}{
		"unavailable book": {ErrBookUnavailable, http.StatusConflict},
		"unknown book":     {ErrNotFound, http.StatusNotFound},
		"store failure":    {assert.AnError, http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(&stubService{err: tc.err})

			rec := httptest.NewRecorder()
			h.HandleCheckout(rec, checkoutRequest(t, map[string]any{"book_id": uuid.New()}, uuid.New()))

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandleReturnMapsAlreadyReturned(t *testing.T) {
	loanID := uuid.New()
	svc := &stubService{err: ErrAlreadyReturned}
	h := newTestHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/loans/{id}/return", h.HandleReturn)

	req := httptest.NewRequest(http.MethodPost, "/api/loans/"+loanID.String()+"/return", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, loanID, svc.gotLoanID)
}

func TestHandleReturnRejectsInvalidID(t *testing.T) {
	h := newTestHandler(&stubService{})

	r := chi.NewRouter()
	r.Post("/api/loans/{id}/return", h.HandleReturn)

	req := httptest.NewRequest(http.MethodPost, "/api/loans/not-a-uuid/return", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListReturnsRecords(t *testing.T) {
	svc := &stubService{records: []*Record{
		{ID: uuid.New(), UserName: "Ana", BookTitle: "1984"},
	}}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/loans/", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].UserName)
	assert.Equal(t, "1984", got[0].BookTitle)
}
