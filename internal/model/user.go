package model

// UserSummary is the shape returned by user search and embedded in
// challenge records. Immutable value object.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserProfile is the authenticated user's full profile from GET /api/user/.
type UserProfile struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	TotalGamesPlayed int    `json:"total_games_played"`
	TotalScore       int    `json:"total_score"`
	BestScoreEasy    int    `json:"best_score_easy"`
	BestScoreMedium  int    `json:"best_score_medium"`
	BestScoreHard    int    `json:"best_score_hard"`
}

// ProfileResponse wraps the profile in the backend's status/message envelope.
type ProfileResponse struct {
	Status  string      `json:"status"`
	Message UserProfile `json:"message"`
}
