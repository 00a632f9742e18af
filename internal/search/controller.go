package search

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/gridduel/client-go/internal/errors"
	"github.com/gridduel/client-go/internal/model"
	"github.com/gridduel/client-go/internal/session"
)

const DefaultDebounce = 500 * time.Millisecond

// Listener is the UI surface consuming search outcomes. Calls are
// delivered serially, in issue order, on a single dispatch goroutine.
type Listener interface {
	// SearchResults replaces the visible result set, preserving server order.
	SearchResults(users []model.UserSummary)
	// SearchFailed clears the visible result set and shows a transient notice.
	SearchFailed(notice string)
}

// Controller converts a stream of query edits into a throttled series of
// user-list calls. Edits within the debounce window supersede each other;
// an explicit Submit bypasses the window. Responses arriving out of issue
// order are discarded by sequence number so only the newest search renders.
type Controller struct {
	sessions *session.Controller
	sched    Scheduler
	delay    time.Duration
	listener Listener

	mu            sync.Mutex
	cancelPending CancelFunc
	pendingGen    uint64
	seq           uint64

	dispatch  chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewController(sessions *session.Controller, sched Scheduler, delay time.Duration, listener Listener) *Controller {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	c := &Controller{
		sessions: sessions,
		sched:    sched,
		delay:    delay,
		listener: listener,
		dispatch: make(chan func(), 32),
		done:     make(chan struct{}),
	}
	go c.dispatchLoop()
	return c
}

// dispatchLoop plays the role of the UI thread: listener callbacks run
// here one at a time, in the order they were enqueued.
func (c *Controller) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case fn := <-c.dispatch:
			fn()
		}
	}
}

// QueryChanged supersedes any pending search and schedules a new one a
// debounce window from now.
func (c *Controller) QueryChanged(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingLocked()

	gen := c.pendingGen
	c.cancelPending = c.sched.Schedule(c.delay, func() {
		c.timerFired(gen, query)
	})
}

// Submit cancels any pending timer and fires the search immediately with
// the given text.
func (c *Controller) Submit(query string) {
	c.mu.Lock()
	c.cancelPendingLocked()
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	c.runSearch(seq, query)
}

// Close cancels any pending search and stops callback delivery.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })
}

// cancelPendingLocked marks the current pending search cancelled. The
// generation bump makes a timer callback that already slipped past
// CancelFunc return without issuing a network call.
func (c *Controller) cancelPendingLocked() {
	c.pendingGen++
	if c.cancelPending != nil {
		c.cancelPending()
		c.cancelPending = nil
	}
}

func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Controller) timerFired(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.pendingGen {
		// Superseded between timer expiry and this callback.
		c.mu.Unlock()
		return
	}
	c.cancelPending = nil
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	c.runSearch(seq, query)
}

func (c *Controller) runSearch(seq uint64, query string) {
	log.Debug().Uint64("seq", seq).Str("query", query).Msg("issuing user search")

	users, err := c.sessions.Client().ListUsers(context.Background(), query)

	c.mu.Lock()
	stale := seq != c.seq
	c.mu.Unlock()

	if stale {
		log.Debug().Uint64("seq", seq).Msg("discarding stale search response")
		return
	}

	if err != nil {
		notice := "Search failed"
		if appErr, ok := apperrors.AsAppError(err); ok {
			notice = appErr.Message
		}
		if c.sessions.HandleError(err) {
			notice = "Session expired, please log in again"
		}
		log.Warn().Err(err).Uint64("seq", seq).Str("query", query).Msg("user search failed")
		c.deliver(seq, func() { c.listener.SearchFailed(notice) })
		return
	}

	c.deliver(seq, func() { c.listener.SearchResults(users) })
}

// deliver enqueues a listener callback. The staleness check repeats on the
// dispatch goroutine: two in-flight searches may both pass the first check,
// but only the one still newest at render time reaches the listener.
func (c *Controller) deliver(seq uint64, fn func()) {
	guarded := func() {
		c.mu.Lock()
		stale := seq != c.seq
		c.mu.Unlock()
		if stale {
			return
		}
		fn()
	}

	select {
	case <-c.done:
	case c.dispatch <- guarded:
	}
}
