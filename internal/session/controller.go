package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gridduel/client-go/internal/api"
	"github.com/gridduel/client-go/internal/credstore"
	apperrors "github.com/gridduel/client-go/internal/errors"
)

// Controller owns the credential store lifecycle. It is the only component
// allowed to mutate credentials: save on login, clear on logout, and forced
// teardown on an authorization failure. It also memoizes the API client so
// a revoked token is never re-attached by a stale instance.
type Controller struct {
	store   credstore.Store
	broker  *Broker
	baseURL string
	opts    []api.Option

	mu     sync.Mutex
	client *api.Client
}

func NewController(store credstore.Store, broker *Broker, baseURL string, opts ...api.Option) *Controller {
	return &Controller{
		store:   store,
		broker:  broker,
		baseURL: baseURL,
		opts:    opts,
	}
}

// Client returns the memoized API client, building it on first use.
// Requests already issued on a previously returned instance complete
// normally even if Invalidate runs mid-flight.
func (c *Controller) Client() *api.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.client = api.NewClient(c.baseURL, c.store, c.opts...)
	}
	return c.client
}

// Invalidate discards the memoized client so the next Client call rebuilds
// it from current credentials.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
}

func (c *Controller) IsLoggedIn() bool {
	return c.store.IsLoggedIn()
}

func (c *Controller) UserID() (string, bool) {
	return c.store.UserID()
}

// Login authenticates against the backend and persists the returned
// credentials before the call returns.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	resp, err := c.Client().Login(ctx, email, password)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return apperrors.Internal("Login response carried no token")
	}
	return c.OnLoginSuccess(resp.Token, resp.UserID)
}

// OnLoginSuccess persists the session credentials and announces the login.
func (c *Controller) OnLoginSuccess(token, userID string) error {
	if err := c.store.SaveToken(&token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := c.store.SaveUserID(&userID); err != nil {
		return fmt.Errorf("save user id: %w", err)
	}

	log.Info().Str("userId", userID).Msg("session established")
	c.broker.Publish(Event{Type: EventLoggedIn})
	return nil
}

// Logout clears credentials on user request and routes back to login.
func (c *Controller) Logout() error {
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	c.Invalidate()

	log.Info().Msg("session closed by user")
	c.broker.Publish(Event{Type: EventLoggedOut})
	c.broker.Publish(Event{Type: EventRouteLogin})
	return nil
}

// OnAuthorizationFailure tears the session down after a 401: credentials
// cleared, client discarded, UI routed to the unauthenticated entry surface
// with its navigation history dropped. Idempotent: when already logged out
// it does nothing beyond re-publishing the navigation signal.
func (c *Controller) OnAuthorizationFailure() {
	wasLoggedIn := c.store.IsLoggedIn()

	if err := c.store.Clear(); err != nil {
		// Keep going: a stale token on disk must not keep a dead session alive.
		log.Error().Err(err).Msg("failed to clear credentials during teardown")
	}
	c.Invalidate()

	if wasLoggedIn {
		log.Warn().Msg("session invalidated by authorization failure")
	}
	c.broker.Publish(Event{Type: EventRouteLogin})
}

// HandleError routes a pipeline error: a 401 triggers full teardown and
// reports true so the caller abandons its workflow; anything else is left
// for the caller to surface.
func (c *Controller) HandleError(err error) bool {
	if apperrors.IsUnauthorized(err) {
		c.OnAuthorizationFailure()
		return true
	}
	return false
}
