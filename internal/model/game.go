package model

import "time"

// GameState is the saved solo-game snapshot returned by the backend.
type GameState struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Board       string    `json:"board"`
	Difficulty  string    `json:"difficulty"`
	TimeSeconds int       `json:"time_seconds"`
	HintsUsed   int       `json:"hints_used"`
	Completed   bool      `json:"completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GameUpdateRequest is the body of the game save call.
type GameUpdateRequest struct {
	Board       string `json:"board"`
	Difficulty  string `json:"difficulty"`
	TimeSeconds int    `json:"time_seconds"`
	HintsUsed   int    `json:"hints_used"`
	Completed   bool   `json:"completed"`
}

// GameResponse wraps the saved state in the status/message envelope.
type GameResponse struct {
	Status  string    `json:"status"`
	Message GameState `json:"message"`
}
