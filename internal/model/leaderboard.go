package model

// LeaderboardEntry is one row of a leaderboard.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"games_played"`
}

// FullLeaderboardData carries every board the backend publishes.
type FullLeaderboardData struct {
	Overall []LeaderboardEntry `json:"overall"`
	Easy    []LeaderboardEntry `json:"easy"`
	Medium  []LeaderboardEntry `json:"medium"`
	Hard    []LeaderboardEntry `json:"hard"`
}
