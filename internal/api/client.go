package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/gridduel/client-go/internal/errors"
	"github.com/gridduel/client-go/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client is the typed surface over the gridduel backend. One instance is
// held per authenticated session; every call routes through authTransport
// so the bearer token is read from the credential store at send time.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: &authTransport{tokens: tokens},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*model.UserProfile, error) {
	var out model.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/", nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// ListUsers searches users by username or email. A blank query returns the
// unfiltered list.
func (c *Client) ListUsers(ctx context.Context, query string) ([]model.UserSummary, error) {
	path := "/api/user/list"
	if query != "" {
		path += "?query=" + url.QueryEscape(query)
	}
	var out []model.UserSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChallenge has at-most-one-intended-effect semantics enforced server
// side; the client does not deduplicate retries.
func (c *Client) CreateChallenge(ctx context.Context, draft model.ChallengeDraft) (*model.ChallengeRecord, error) {
	var out model.ChallengeRecord
	err := c.do(ctx, http.MethodPost, "/api/challenges", model.CreateChallengeRequest{
		PuzzleID:           draft.PuzzleID,
		OpponentID:         draft.OpponentUserID,
		ChallengerDuration: draft.ChallengerDuration,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RespondChallenge(ctx context.Context, challengeID string, action model.ChallengeAction) (*model.ChallengeRecord, error) {
	var out model.ChallengeRecord
	path := fmt.Sprintf("/api/challenges/%s/respond", url.PathEscape(challengeID))
	err := c.do(ctx, http.MethodPost, path, model.RespondChallengeRequest{Action: action}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveGame(ctx context.Context, req model.GameUpdateRequest) (*model.GameState, error) {
	var out model.GameResponse
	if err := c.do(ctx, http.MethodPut, "/api/game", req, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) LoadGame(ctx context.Context) (*model.GameState, error) {
	var out model.GameResponse
	if err := c.do(ctx, http.MethodGet, "/api/game", nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) Leaderboard(ctx context.Context) (*model.FullLeaderboardData, error) {
	var out model.FullLeaderboardData
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("api request failed")
		return apperrors.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn().
			Str("method", method).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("api request rejected: unauthorized")
		return apperrors.Unauthorized(serverMessage(resp, "Session expired"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := serverMessage(resp, fmt.Sprintf("Request failed with status %d", resp.StatusCode))
		log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("api request rejected")
		return apperrors.ValidationError(message).WithDetails(map[string]int{"http_status": resp.StatusCode})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("api request completed")

	return nil
}

// serverMessage pulls the status/message body off a non-2xx response,
// falling back when the body is empty or unstructured.
func serverMessage(resp *http.Response, fallback string) string {
	var apiErr model.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
		return fallback
	}
	return apiErr.Message
}
