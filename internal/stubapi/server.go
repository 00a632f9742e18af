// Package stubapi is a self-contained, in-memory rendition of the gridduel
// backend. It exists for local development and end-to-end tests of the
// client pipeline; it is not a production server.
package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridduel/client-go/internal/httputil"
	"github.com/gridduel/client-go/internal/model"
)

const challengeTTL = 24 * time.Hour

type contextKey string

const userContextKey contextKey = "user"

type account struct {
	profile  model.UserProfile
	password string
}

type Server struct {
	mu         sync.Mutex
	accounts   map[string]*account               // user id -> account
	tokens     map[string]string                 // token -> user id
	challenges map[string]*model.ChallengeRecord // challenge id -> record
	games      map[string]*model.GameState       // user id -> saved game
}

func New() *Server {
	return &Server{
		accounts:   make(map[string]*account),
		tokens:     make(map[string]string),
		challenges: make(map[string]*model.ChallengeRecord),
		games:      make(map[string]*model.GameState),
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/user/", s.handleCurrentUser)
		r.Get("/api/user/list", s.handleListUsers)
		r.Post("/api/challenges", s.handleCreateChallenge)
		r.Post("/api/challenges/{id}/respond", s.handleRespondChallenge)
		r.Get("/api/game", s.handleLoadGame)
		r.Put("/api/game", s.handleSaveGame)
		r.Get("/api/leaderboard", s.handleLeaderboard)
	})

	return r
}

// Seed registers a user directly, for tests and dev bootstrapping.
// It returns the new user's id.
func (s *Server) Seed(username, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAccountLocked(username, email, password)
}

func (s *Server) createAccountLocked(username, email, password string) string {
	id := uuid.NewString()
	s.accounts[id] = &account{
		profile: model.UserProfile{
			ID:       id,
			Username: username,
			Email:    email,
		},
		password: password,
	}
	return id
}

func (s *Server) issueTokenLocked(userID string) string {
	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "Missing authentication token")
			return
		}

		s.mu.Lock()
		userID, found := s.tokens[token]
		s.mu.Unlock()

		if !found {
			log.Warn().Msg("stub auth: invalid token attempt")
			httputil.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUser(r *http.Request) string {
	id, _ := r.Context().Value(userContextKey).(string)
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.profile.Email == req.Email {
			httputil.WriteError(w, http.StatusConflict, "Email already registered")
			return
		}
	}

	id := s.createAccountLocked(req.Username, req.Email, req.Password)
	token := s.issueTokenLocked(id)

	httputil.WriteJSON(w, http.StatusOK, model.AuthResponse{
		Status: "ok", Message: "registered", Token: token, UserID: id,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, acct := range s.accounts {
		if acct.profile.Email == req.Email && acct.password == req.Password {
			token := s.issueTokenLocked(id)
			httputil.WriteJSON(w, http.StatusOK, model.AuthResponse{
				Status: "ok", Message: "logged in", Token: token, UserID: id,
			})
			return
		}
	}

	httputil.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct, ok := s.accounts[requestUser(r)]
	s.mu.Unlock()

	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.ProfileResponse{
		Status:  "ok",
		Message: acct.profile,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))
	requester := requestUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]model.UserSummary, 0, len(s.accounts))
	for id, acct := range s.accounts {
		if id == requester {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(acct.profile.Username), query) &&
			!strings.Contains(strings.ToLower(acct.profile.Email), query) {
			continue
		}
		users = append(users, model.UserSummary{
			ID:       id,
			Username: acct.profile.Username,
			Email:    acct.profile.Email,
		})
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req model.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.PuzzleID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "puzzle_id is required")
		return
	}
	if req.ChallengerDuration <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "challenger_duration must be positive")
		return
	}

	challengerID := requestUser(r)
	if req.OpponentID == challengerID {
		httputil.WriteError(w, http.StatusBadRequest, "Cannot challenge yourself")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opponent, ok := s.accounts[req.OpponentID]
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Opponent not found")
		return
	}
	challenger := s.accounts[challengerID]

	now := time.Now().UTC()
	record := &model.ChallengeRecord{
		ID:                 uuid.NewString(),
		PuzzleID:           req.PuzzleID,
		ChallengerID:       challengerID,
		OpponentID:         req.OpponentID,
		Status:             model.ChallengeStatusPending,
		ChallengerDuration: req.ChallengerDuration,
		CreatedAt:          now,
		ExpiresAt:          now.Add(challengeTTL),
		Challenger:         summaryOf(challenger),
		Opponent:           summaryOf(opponent),
	}
	s.challenges[record.ID] = record

	log.Info().
		Str("challengeId", record.ID).
		Str("challengerId", challengerID).
		Str("opponentId", req.OpponentID).
		Msg("stub challenge created")

	httputil.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) handleRespondChallenge(w http.ResponseWriter, r *http.Request) {
	var req model.RespondChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Action != model.ChallengeActionAccept && req.Action != model.ChallengeActionReject {
		httputil.WriteError(w, http.StatusBadRequest, "action must be accept or reject")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.challenges[chi.URLParam(r, "id")]
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Challenge not found")
		return
	}
	if record.OpponentID != requestUser(r) {
		httputil.WriteError(w, http.StatusForbidden, "Only the challenged user may respond")
		return
	}
	if record.Status != model.ChallengeStatusPending {
		httputil.WriteError(w, http.StatusConflict, "Challenge is no longer pending")
		return
	}

	if req.Action == model.ChallengeActionAccept {
		record.Status = model.ChallengeStatusAccepted
	} else {
		record.Status = model.ChallengeStatusRejected
	}

	httputil.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	game, ok := s.games[requestUser(r)]
	s.mu.Unlock()

	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "No saved game")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.GameResponse{Status: "ok", Message: *game})
}

func (s *Server) handleSaveGame(w http.ResponseWriter, r *http.Request) {
	var req model.GameUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	userID := requestUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[userID]
	if !ok {
		game = &model.GameState{ID: uuid.NewString(), UserID: userID}
		s.games[userID] = game
	}

	wasCompleted := game.Completed
	game.Board = req.Board
	game.Difficulty = req.Difficulty
	game.TimeSeconds = req.TimeSeconds
	game.HintsUsed = req.HintsUsed
	game.Completed = req.Completed
	game.UpdatedAt = time.Now().UTC()

	if req.Completed && !wasCompleted {
		s.recordCompletionLocked(userID, req)
	}

	httputil.WriteJSON(w, http.StatusOK, model.GameResponse{Status: "ok", Message: *game})
}

// recordCompletionLocked folds a finished game into the profile counters.
func (s *Server) recordCompletionLocked(userID string, req model.GameUpdateRequest) {
	acct, ok := s.accounts[userID]
	if !ok {
		return
	}

	score := 1000 - req.TimeSeconds - 50*req.HintsUsed
	if score < 0 {
		score = 0
	}

	p := &acct.profile
	p.TotalGamesPlayed++
	p.TotalScore += score

	switch req.Difficulty {
	case "easy":
		if score > p.BestScoreEasy {
			p.BestScoreEasy = score
		}
	case "medium":
		if score > p.BestScoreMedium {
			p.BestScoreMedium = score
		}
	case "hard":
		if score > p.BestScoreHard {
			p.BestScoreHard = score
		}
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := model.FullLeaderboardData{
		Overall: s.boardLocked(func(p model.UserProfile) int { return p.TotalScore }),
		Easy:    s.boardLocked(func(p model.UserProfile) int { return p.BestScoreEasy }),
		Medium:  s.boardLocked(func(p model.UserProfile) int { return p.BestScoreMedium }),
		Hard:    s.boardLocked(func(p model.UserProfile) int { return p.BestScoreHard }),
	}

	httputil.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) boardLocked(score func(model.UserProfile) int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(s.accounts))
	for _, acct := range s.accounts {
		if score(acct.profile) == 0 {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:      acct.profile.ID,
			Username:    acct.profile.Username,
			Score:       score(acct.profile),
			GamesPlayed: acct.profile.TotalGamesPlayed,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	return entries
}

func summaryOf(acct *account) *model.UserSummary {
	return &model.UserSummary{
		ID:       acct.profile.ID,
		Username: acct.profile.Username,
		Email:    acct.profile.Email,
	}
}
