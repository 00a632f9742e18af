package challenge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridduel/client-go/internal/credstore"
	apperrors "github.com/gridduel/client-go/internal/errors"
	"github.com/gridduel/client-go/internal/model"
	"github.com/gridduel/client-go/internal/session"
)

type challengeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	requests [][]byte
	status   int
	body     any
}

func newChallengeBackend(t *testing.T) *challengeBackend {
	t.Helper()
	b := &challengeBackend{status: http.StatusOK}

	r := chi.NewRouter()
	r.Post("/api/challenges", func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		b.mu.Lock()
		b.requests = append(b.requests, raw)
		status, body := b.status, b.body
		b.mu.Unlock()

		if body == nil {
			body = model.ChallengeRecord{
				ID: "c1", PuzzleID: "p1", OpponentID: "u2",
				Status: model.ChallengeStatusPending, ChallengerDuration: 120,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

func (b *challengeBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func newWorkflowFixture(t *testing.T, backend *challengeBackend) (*session.Controller, *session.Broker, credstore.Store, *session.Subscriber) {
	t.Helper()
	store := credstore.NewMemory()
	tok := "tok-challenge"
	require.NoError(t, store.SaveToken(&tok))

	broker := session.NewBroker()
	sub := broker.Subscribe()
	sessions := session.NewController(store, broker, backend.URL)
	return sessions, broker, store, sub
}

func collectEvents(sub *session.Subscriber) []session.EventType {
	var types []session.EventType
	for {
		select {
		case evt := <-sub.Events:
			types = append(types, evt.Type)
		case <-time.After(50 * time.Millisecond):
			return types
		}
	}
}

func TestWorkflowPreconditions(t *testing.T) {
	backend := newChallengeBackend(t)
	sessions, broker, _, _ := newWorkflowFixture(t, backend)

	t.Run("missing puzzle id aborts before any network call", func(t *testing.T) {
		_, err := New(sessions, broker, "", 120)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
		assert.Zero(t, backend.requestCount())
	})

	t.Run("missing duration aborts before any network call", func(t *testing.T) {
		_, err := New(sessions, broker, "p1", 0)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
		assert.Zero(t, backend.requestCount())
	})
}

func TestWorkflowHappyPath(t *testing.T) {
	backend := newChallengeBackend(t)
	sessions, broker, _, sub := newWorkflowFixture(t, backend)

	w, err := New(sessions, broker, "p1", 120)
	require.NoError(t, err)
	assert.Equal(t, StateSelectingOpponent, w.State())

	require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u2", Username: "rival"}))
	assert.Equal(t, StateConfirming, w.State())
	opponent, ok := w.Opponent()
	require.True(t, ok)
	assert.Equal(t, "rival", opponent.Username)

	record, err := w.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, w.State())
	assert.Equal(t, "c1", record.ID)

	// Exact wire body per the backend contract.
	require.Equal(t, 1, backend.requestCount())
	assert.JSONEq(t, `{"puzzle_id":"p1","opponent_id":"u2","challenger_duration":120}`, string(backend.requests[0]))

	// Success lands on the home surface with the workflow stack dropped.
	assert.Contains(t, collectEvents(sub), session.EventRouteHome)
}

func TestWorkflowDecline(t *testing.T) {
	backend := newChallengeBackend(t)
	sessions, broker, _, _ := newWorkflowFixture(t, backend)

	w, err := New(sessions, broker, "p1", 120)
	require.NoError(t, err)
	require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u2"}))

	require.NoError(t, w.Decline())
	assert.Equal(t, StateSelectingOpponent, w.State())
	_, ok := w.Opponent()
	assert.False(t, ok)

	// "No" has no side effects: nothing went out.
	assert.Zero(t, backend.requestCount())
}

func TestWorkflowServerFailureIsResumable(t *testing.T) {
	backend := newChallengeBackend(t)
	backend.status = http.StatusBadRequest
	backend.body = model.APIError{Status: "error", Message: "opponent already challenged"}

	sessions, broker, store, sub := newWorkflowFixture(t, backend)

	w, err := New(sessions, broker, "p1", 120)
	require.NoError(t, err)
	require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u2"}))

	_, err = w.Confirm(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.Contains(t, err.Error(), "opponent already challenged")

	// Not session-ending, and the user may pick another opponent.
	assert.True(t, store.IsLoggedIn())
	events := collectEvents(sub)
	assert.Contains(t, events, session.EventNotice)
	assert.NotContains(t, events, session.EventRouteLogin)

	require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u3"}))
	assert.Equal(t, StateConfirming, w.State())
}

func TestWorkflowUnauthorizedAbandons(t *testing.T) {
	backend := newChallengeBackend(t)
	backend.status = http.StatusUnauthorized
	backend.body = model.APIError{Status: "error", Message: "token expired"}

	sessions, broker, store, sub := newWorkflowFixture(t, backend)

	w, err := New(sessions, broker, "p1", 120)
	require.NoError(t, err)
	require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u2"}))

	_, err = w.Confirm(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, StateFailed, w.State())

	// Full teardown: credentials gone, user routed to login.
	assert.False(t, store.IsLoggedIn())
	assert.Contains(t, collectEvents(sub), session.EventRouteLogin)
}

func TestWorkflowInvalidTransitions(t *testing.T) {
	backend := newChallengeBackend(t)
	sessions, broker, _, _ := newWorkflowFixture(t, backend)

	w, err := New(sessions, broker, "p1", 120)
	require.NoError(t, err)

	t.Run("confirm before selecting", func(t *testing.T) {
		_, err := w.Confirm(context.Background())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})

	t.Run("decline before selecting", func(t *testing.T) {
		assert.Error(t, w.Decline())
	})

	t.Run("done is terminal", func(t *testing.T) {
		require.NoError(t, w.SelectOpponent(model.UserSummary{ID: "u2"}))
		_, err := w.Confirm(context.Background())
		require.NoError(t, err)

		assert.Error(t, w.SelectOpponent(model.UserSummary{ID: "u3"}))
	})
}
