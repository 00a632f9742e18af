package challenge

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/gridduel/client-go/internal/errors"
	"github.com/gridduel/client-go/internal/model"
	"github.com/gridduel/client-go/internal/session"
)

type State string

const (
	StateSelectingOpponent State = "selecting_opponent"
	StateConfirming        State = "confirming"
	StateSubmitting        State = "submitting"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Workflow drives one create-challenge sequence: pick an opponent, confirm,
// submit, then either land on the home surface or stay resumable for
// another attempt. One Workflow serves one invocation; Done is terminal.
type Workflow struct {
	sessions *session.Controller
	broker   *session.Broker

	puzzleID string
	duration int

	mu       sync.Mutex
	state    State
	opponent *model.UserSummary
}

// New fails fast when the entry inputs are missing: no workflow state is
// created and no network call will ever be issued for this invocation.
func New(sessions *session.Controller, broker *session.Broker, puzzleID string, challengerDurationSeconds int) (*Workflow, error) {
	if puzzleID == "" {
		return nil, apperrors.MissingRequired("puzzleId")
	}
	if challengerDurationSeconds <= 0 {
		return nil, apperrors.MissingRequired("challengerDuration")
	}

	return &Workflow{
		sessions: sessions,
		broker:   broker,
		puzzleID: puzzleID,
		duration: challengerDurationSeconds,
		state:    StateSelectingOpponent,
	}, nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Opponent() (model.UserSummary, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opponent == nil {
		return model.UserSummary{}, false
	}
	return *w.opponent, true
}

// SelectOpponent moves to the confirmation gate. Allowed from the initial
// state and from Failed, which is what makes a failed attempt resumable.
func (w *Workflow) SelectOpponent(opponent model.UserSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSelectingOpponent && w.state != StateFailed {
		return invalidTransition(w.state, "select opponent")
	}

	w.opponent = &opponent
	w.state = StateConfirming
	return nil
}

// Decline answers "no" at the confirmation gate. No side effects beyond
// returning to opponent selection.
func (w *Workflow) Decline() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateConfirming {
		return invalidTransition(w.state, "decline")
	}

	w.opponent = nil
	w.state = StateSelectingOpponent
	return nil
}

// Confirm answers "yes": it builds the challenge draft, submits it, and on
// success routes the UI home with the workflow's navigation stack dropped.
// On failure the workflow lands in Failed with the server's message
// surfaced, ready for another SelectOpponent.
func (w *Workflow) Confirm(ctx context.Context) (*model.ChallengeRecord, error) {
	w.mu.Lock()
	if w.state != StateConfirming {
		w.mu.Unlock()
		return nil, invalidTransition(w.state, "confirm")
	}
	draft := model.ChallengeDraft{
		PuzzleID:           w.puzzleID,
		OpponentUserID:     w.opponent.ID,
		ChallengerDuration: w.duration,
	}
	w.state = StateSubmitting
	w.mu.Unlock()

	record, err := w.sessions.Client().CreateChallenge(ctx, draft)
	if err != nil {
		w.mu.Lock()
		w.state = StateFailed
		w.mu.Unlock()

		if w.sessions.HandleError(err) {
			// Session teardown already routed to login; this workflow is dead.
			log.Warn().Str("puzzleId", w.puzzleID).Msg("challenge submission abandoned: session expired")
			return nil, err
		}

		notice := "Could not create challenge"
		if appErr, ok := apperrors.AsAppError(err); ok {
			notice = appErr.Message
		}
		log.Warn().Err(err).Str("puzzleId", w.puzzleID).Str("opponentId", draft.OpponentUserID).Msg("challenge submission failed")
		w.broker.Publish(session.Event{Type: session.EventNotice, Message: notice})
		return nil, err
	}

	w.mu.Lock()
	w.state = StateDone
	w.mu.Unlock()

	log.Info().
		Str("challengeId", record.ID).
		Str("puzzleId", record.PuzzleID).
		Str("opponentId", record.OpponentID).
		Msg("challenge created")
	w.broker.Publish(session.Event{Type: session.EventRouteHome})
	return record, nil
}

func invalidTransition(state State, action string) error {
	return apperrors.Conflict(fmt.Sprintf("Cannot %s while %s", action, state))
}
