// internal/session/middleware_test.go
package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	sessions map[string]uuid.UUID
	err      error
}

func (s *stubStore) Create(_ context.Context, userID uuid.UUID) (string, error) {
	sid := uuid.NewString()
	s.sessions[sid] = userID
	return sid, nil
}

func (s *stubStore) Resolve(_ context.Context, sessionID string) (uuid.UUID, bool, error) {
	if s.err != nil {
		return uuid.Nil, false, s.err
	}
	id, ok := s.sessions[sessionID]
	return id, ok, nil
}

func (s *stubStore) Destroy(_ context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	store := &stubStore{sessions: map[string]uuid.UUID{}}
	handler := RequireAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsUnknownSession(t *testing.T) {
	store := &stubStore{sessions: map[string]uuid.UUID{}}
	handler := RequireAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthInjectsUserID(t *testing.T) {
	store := &stubStore{sessions: map[string]uuid.UUID{}}
	userID := uuid.New()
	sid, err := store.Create(context.Background(), userID)
	require.NoError(t, err)

	var seen uuid.UUID
	handler := RequireAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		require.True(t, ok)
		seen = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sid})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, seen)
}

func TestRequireAuthSurfacesStoreFailure(t *testing.T) {
	store := &stubStore{sessions: map[string]uuid.UUID{}, err: errors.New("redis down")}
	handler := RequireAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "any"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUserIDAbsentFromPlainContext(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)
}
