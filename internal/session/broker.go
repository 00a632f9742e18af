package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	// EventLoggedIn fires after credentials are persisted for a fresh login.
	EventLoggedIn EventType = "logged_in"
	// EventLoggedOut fires after a user-initiated logout.
	EventLoggedOut EventType = "logged_out"
	// EventRouteLogin tells the UI to drop all authenticated state and
	// navigation history and land on the login surface.
	EventRouteLogin EventType = "route_login"
	// EventRouteHome tells the UI to discard the current workflow's
	// navigation stack and land on the home surface.
	EventRouteHome EventType = "route_home"
	// EventNotice carries a transient, non-blocking user message.
	EventNotice EventType = "notice"
)

type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
}

type Subscriber struct {
	Events chan Event
	Done   chan struct{}
}

// Broker fans session and navigation events out to UI subscribers. One
// process serves one user, so there is no per-account keying.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[*Subscriber]bool),
	}
}

func (b *Broker) Subscribe() *Subscriber {
	sub := &Subscriber{
		Events: make(chan Event, 16),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub] = true
	count := len(b.subscribers)
	b.mu.Unlock()

	log.Debug().Int("subscriberCount", count).Msg("session event subscriber added")
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub.Done)
	}
}

func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			log.Warn().
				Str("type", string(event.Type)).
				Msg("subscriber event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subscribers {
		close(sub.Done)
	}
	b.subscribers = make(map[*Subscriber]bool)
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
