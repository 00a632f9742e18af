package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridduel/client-go/internal/credstore"
	apperrors "github.com/gridduel/client-go/internal/errors"
	"github.com/gridduel/client-go/internal/model"
)

type backendFake struct {
	*httptest.Server
	authHeaders []string
}

func newBackendFake(t *testing.T) *backendFake {
	t.Helper()
	fake := &backendFake{}

	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, model.AuthResponse{
			Status: "ok", Token: "tok-session", UserID: "user-7",
		})
	})
	r.Get("/api/user/list", func(w http.ResponseWriter, req *http.Request) {
		fake.authHeaders = append(fake.authHeaders, req.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []model.UserSummary{})
	})

	fake.Server = httptest.NewServer(r)
	t.Cleanup(fake.Close)
	return fake
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func drainEvents(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case evt := <-sub.Events:
			events = append(events, evt)
		case <-time.After(50 * time.Millisecond):
			return events
		}
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, evt := range events {
		types = append(types, evt.Type)
	}
	return types
}

func TestControllerLogin(t *testing.T) {
	t.Run("login persists credentials and announces it", func(t *testing.T) {
		fake := newBackendFake(t)
		store := credstore.NewMemory()
		broker := NewBroker()
		sub := broker.Subscribe()

		ctrl := NewController(store, broker, fake.URL)
		require.NoError(t, ctrl.Login(context.Background(), "ana@example.com", "hunter2"))

		assert.True(t, ctrl.IsLoggedIn())
		token, ok := store.Token()
		require.True(t, ok)
		assert.Equal(t, "tok-session", token)
		userID, ok := ctrl.UserID()
		require.True(t, ok)
		assert.Equal(t, "user-7", userID)

		assert.Contains(t, eventTypes(drainEvents(sub)), EventLoggedIn)
	})

	t.Run("authenticated call after login carries the bearer token", func(t *testing.T) {
		fake := newBackendFake(t)
		ctrl := NewController(credstore.NewMemory(), NewBroker(), fake.URL)

		require.NoError(t, ctrl.Login(context.Background(), "ana@example.com", "hunter2"))
		_, err := ctrl.Client().ListUsers(context.Background(), "")
		require.NoError(t, err)

		require.Len(t, fake.authHeaders, 1)
		assert.Equal(t, "Bearer tok-session", fake.authHeaders[0])
	})
}

func TestControllerClientMemoization(t *testing.T) {
	fake := newBackendFake(t)
	ctrl := NewController(credstore.NewMemory(), NewBroker(), fake.URL)

	first := ctrl.Client()
	assert.Same(t, first, ctrl.Client())

	ctrl.Invalidate()
	rebuilt := ctrl.Client()
	assert.NotSame(t, first, rebuilt)
	assert.Same(t, rebuilt, ctrl.Client())
}

func TestControllerAuthorizationFailure(t *testing.T) {
	t.Run("tears down session and routes to login", func(t *testing.T) {
		fake := newBackendFake(t)
		store := credstore.NewMemory()
		broker := NewBroker()
		sub := broker.Subscribe()

		ctrl := NewController(store, broker, fake.URL)
		require.NoError(t, ctrl.Login(context.Background(), "ana@example.com", "hunter2"))
		drainEvents(sub)

		before := ctrl.Client()
		ctrl.OnAuthorizationFailure()

		assert.False(t, store.IsLoggedIn())
		assert.NotSame(t, before, ctrl.Client())
		assert.Contains(t, eventTypes(drainEvents(sub)), EventRouteLogin)

		// With credentials gone, the next call goes out unauthenticated.
		_, err := ctrl.Client().ListUsers(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, fake.authHeaders, 1)
		assert.Empty(t, fake.authHeaders[0])
	})

	t.Run("idempotent when already logged out", func(t *testing.T) {
		fake := newBackendFake(t)
		broker := NewBroker()
		sub := broker.Subscribe()

		ctrl := NewController(credstore.NewMemory(), broker, fake.URL)
		ctrl.OnAuthorizationFailure()
		ctrl.OnAuthorizationFailure()

		types := eventTypes(drainEvents(sub))
		assert.Equal(t, []EventType{EventRouteLogin, EventRouteLogin}, types)
		assert.False(t, ctrl.IsLoggedIn())
	})
}

func TestControllerLogout(t *testing.T) {
	fake := newBackendFake(t)
	store := credstore.NewMemory()
	broker := NewBroker()
	sub := broker.Subscribe()

	ctrl := NewController(store, broker, fake.URL)
	require.NoError(t, ctrl.Login(context.Background(), "ana@example.com", "hunter2"))
	drainEvents(sub)

	require.NoError(t, ctrl.Logout())
	assert.False(t, store.IsLoggedIn())
	assert.Equal(t, []EventType{EventLoggedOut, EventRouteLogin}, eventTypes(drainEvents(sub)))
}

func TestControllerHandleError(t *testing.T) {
	fake := newBackendFake(t)
	store := credstore.NewMemory()
	tok := "tok-x"
	require.NoError(t, store.SaveToken(&tok))

	ctrl := NewController(store, NewBroker(), fake.URL)

	t.Run("401 triggers teardown", func(t *testing.T) {
		handled := ctrl.HandleError(apperrors.Unauthorized("expired"))
		assert.True(t, handled)
		assert.False(t, store.IsLoggedIn())
	})

	t.Run("other errors are left to the caller", func(t *testing.T) {
		handled := ctrl.HandleError(apperrors.ValidationError("bad input"))
		assert.False(t, handled)
	})
}
