package model

import "time"

type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusAccepted  ChallengeStatus = "accepted"
	ChallengeStatusRejected  ChallengeStatus = "rejected"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusExpired   ChallengeStatus = "expired"
)

type ChallengeAction string

const (
	ChallengeActionAccept ChallengeAction = "accept"
	ChallengeActionReject ChallengeAction = "reject"
)

// ChallengeRecord is server-authoritative and read-only on the client;
// it is replaced wholesale by server responses, never mutated in place.
type ChallengeRecord struct {
	ID                 string          `json:"id"`
	PuzzleID           string          `json:"puzzle_id"`
	ChallengerID       string          `json:"challenger_id"`
	OpponentID         string          `json:"opponent_id"`
	Status             ChallengeStatus `json:"status"`
	ChallengerDuration int             `json:"challenger_duration"`
	OpponentDuration   *int            `json:"opponent_duration,omitempty"`
	WinnerID           *string         `json:"winner_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Puzzle             *Puzzle         `json:"puzzle,omitempty"`
	Challenger         *UserSummary    `json:"challenger,omitempty"`
	Opponent           *UserSummary    `json:"opponent,omitempty"`
	Winner             *UserSummary    `json:"winner,omitempty"`
}

// ChallengeDraft is built transiently from prior-screen inputs plus a
// selected opponent and consumed exactly once by CreateChallenge.
type ChallengeDraft struct {
	PuzzleID           string
	OpponentUserID     string
	ChallengerDuration int
}

// CreateChallengeRequest is the body of POST /api/challenges.
type CreateChallengeRequest struct {
	PuzzleID           string `json:"puzzle_id"`
	OpponentID         string `json:"opponent_id"`
	ChallengerDuration int    `json:"challenger_duration"`
}

// RespondChallengeRequest is the body of POST /api/challenges/{id}/respond.
type RespondChallengeRequest struct {
	Action ChallengeAction `json:"action"`
}

// Puzzle is the board payload embedded in a challenge.
type Puzzle struct {
	ID         string `json:"id"`
	Difficulty string `json:"difficulty"`
	Board      string `json:"board"`
}
