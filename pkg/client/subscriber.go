package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

// Subscriber bridges the session's inbound frames into store mutations and
// performs the one-time bootstrap fetch. It activates once the session
// reports connected; the user id must be known up front because the
// backlog endpoint is addressed per user.
type Subscriber struct {
	session  *Session
	rest     *RestClient
	store    *Store
	registry *Registry
	userID   string

	mu           sync.Mutex
	active       bool
	bootstrapped bool

	done chan struct{}
}

func NewSubscriber(session *Session, rest *RestClient, store *Store, registry *Registry, userID string) *Subscriber {
	return &Subscriber{
		session:  session,
		rest:     rest,
		store:    store,
		registry: registry,
		userID:   userID,
		done:     make(chan struct{}),
	}
}

// Start opens the single push subscription for this session. A second call
// while one is active is a no-op. A push frame may arrive before the
// bootstrap fetch resolves; the registry and the store's own merge keep
// either ordering correct.
func (s *Subscriber) Start() error {
	if s.userID == "" {
		return xerrors.ErrInvalidInput
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		log.Printf("[Subscriber] already subscribed for user %s, ignoring", s.userID)
		return nil
	}
	s.active = true
	s.mu.Unlock()

	s.session.OnStateChange(func(c StateChange) {
		switch c.State {
		case StateConnected:
			go s.bootstrap()
		case StateDisconnected:
			if c.Err != nil {
				s.store.SetError(c.Err)
			}
		}
	})

	go s.frameLoop()

	if s.session.State() == StateConnected {
		go s.bootstrap()
	}
	return nil
}

// Stop ends the subscription. The dedup registry is deliberately left
// intact; it outlives resubscription within the same session.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
}

// bootstrap seeds the store and the registry from the backlog endpoint.
// It runs at most once per activation; reconnects do not refetch.
func (s *Subscriber) bootstrap() {
	s.mu.Lock()
	if s.bootstrapped || !s.active {
		s.mu.Unlock()
		return
	}
	s.bootstrapped = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := s.rest.FetchNotifications(ctx, s.userID)
	if err != nil {
		log.Printf("[Subscriber] bootstrap fetch for user %s failed: %v", s.userID, err)
		s.store.SetError(err)
		return
	}

	for _, it := range items {
		if !s.registry.Admit(it.ID) {
			log.Printf("[Subscriber] backlog id %s already seen, skipping registry insert", it.ID)
		}
	}
	// The batch merge drops anything already in the store, so a push that
	// won the race is not duplicated.
	s.store.SetNotifications(items)
	log.Printf("[Subscriber] bootstrap loaded %d notifications for user %s", len(items), s.userID)
}

func (s *Subscriber) frameLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.session.Inbound():
			s.handleFrame(data)
		}
	}
}

// handleFrame applies one inbound frame. Malformed JSON and unknown types
// are logged and dropped; the loop keeps going either way.
func (s *Subscriber) handleFrame(data []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("[Subscriber] dropping malformed frame: %v", err)
		return
	}

	switch frame.Type {
	case domain.FrameNewNotification:
		if frame.Notification == nil {
			log.Printf("[Subscriber] new-notification frame without payload, dropping")
			return
		}
		n := *frame.Notification
		if !s.registry.Admit(n.ID) {
			log.Printf("[Subscriber] duplicate notification %s, discarding", n.ID)
			return
		}
		s.store.AddNotification(n)

	case domain.FrameMarkedRead:
		// Idempotent with the optimistic local flip.
		s.store.MarkAsRead(frame.NotificationID)

	case domain.FrameMarkedAllRead:
		s.store.MarkAllAsRead()

	default:
		log.Printf("[Subscriber] unknown frame type %q, ignoring", frame.Type)
	}
}
