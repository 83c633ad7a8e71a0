// Package client is the Go SDK for the greenspace notification service.
// It keeps a local store of the user's notifications in sync with the
// backend over a persistent websocket, seeded by a one-time REST fetch,
// and publishes mark-as-read actions back optimistically.
package client

import (
	"log"
	"strings"
	"sync"

	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

type Config struct {
	BaseURL string // http(s) base of the REST API
	WSURL   string // push endpoint; derived from BaseURL when empty
	Token   string // bearer token, required
	UserID  string // authenticated user id, required
}

// Client owns the session/subscriber/dispatcher lifecycle for one
// authenticated user. The store and the dedup registry live as long as the
// client itself; sessions come and go underneath them (a token change
// tears the transport down and builds a new one, it never reuses).
type Client struct {
	cfg      Config
	store    *Store
	registry *Registry

	mu         sync.Mutex
	session    *Session
	subscriber *Subscriber
	dispatcher *Dispatcher
	started    bool
	closed     bool
}

func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, xerrors.ErrMissingToken
	}
	if cfg.UserID == "" {
		return nil, xerrors.ErrInvalidInput
	}
	if cfg.WSURL == "" {
		cfg.WSURL = deriveWSURL(cfg.BaseURL)
	}
	return &Client{
		cfg:      cfg,
		store:    NewStore(),
		registry: NewRegistry(),
	}, nil
}

// Start connects and begins syncing. Safe to call once per client.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return xerrors.ErrSessionClosed
	}
	if c.started {
		return nil
	}
	if err := c.startLocked(); err != nil {
		return err
	}
	c.started = true
	return nil
}

func (c *Client) startLocked() error {
	session, err := NewSession(SessionConfig{
		URL:   c.cfg.WSURL,
		Token: c.cfg.Token,
	})
	if err != nil {
		return err
	}

	rest := NewRestClient(c.cfg.BaseURL, c.cfg.Token)
	sub := NewSubscriber(session, rest, c.store, c.registry, c.cfg.UserID)
	if err := sub.Start(); err != nil {
		return err
	}
	session.Start()

	c.session = session
	c.subscriber = sub
	c.dispatcher = NewDispatcher(session, c.store)
	return nil
}

// SetToken swaps credentials: full transport teardown and a fresh session,
// keeping the store and the registry (same user, same tab).
func (c *Client) SetToken(token string) error {
	if token == "" {
		return xerrors.ErrMissingToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return xerrors.ErrSessionClosed
	}
	if token == c.cfg.Token {
		return nil
	}

	log.Printf("[Client] token changed for user %s, recreating session", c.cfg.UserID)
	c.teardownLocked()
	c.cfg.Token = token
	if !c.started {
		return nil
	}
	return c.startLocked()
}

// Stop tears everything down. The pending reconnect, if any, is cancelled.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
}

func (c *Client) teardownLocked() {
	if c.subscriber != nil {
		c.subscriber.Stop()
		c.subscriber = nil
	}
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.dispatcher = nil
}

// Store exposes the synced state for read-only consumption.
func (c *Client) Store() *Store {
	return c.store
}

func (c *Client) MarkAsRead(id string) {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d == nil {
		log.Printf("[Client] not started, dropping mark-read for %s", id)
		return
	}
	d.MarkAsRead(id)
}

func (c *Client) MarkAllAsRead() {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d == nil {
		log.Printf("[Client] not started, dropping mark-all-read")
		return
	}
	d.MarkAllAsRead()
}

func deriveWSURL(baseURL string) string {
	ws := baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/ws/notifications"
}
