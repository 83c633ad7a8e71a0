package client

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

// State is the observable connection state of a transport session.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StateChange is delivered to observers on every transition. Err is set when
// the session dropped because of a handshake or mid-session failure.
type StateChange struct {
	State State
	Err   error
}

type SessionConfig struct {
	URL            string        // ws:// or wss:// endpoint
	Token          string        // bearer token, required
	ReconnectDelay time.Duration // fixed delay between attempts, default 5s
	Heartbeat      time.Duration // ping interval, default 4s
}

// Session maintains one authenticated persistent connection to the push
// endpoint. The token travels as a connection header on the handshake, not
// per message. On unexpected closure it retries forever at a fixed delay;
// there is no cap and no backoff growth. Close cancels any pending
// reconnect so no dial fires after intentional shutdown.
type Session struct {
	cfg SessionConfig

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	observers []func(StateChange)
	closed    bool
	started   bool

	writeMu sync.Mutex

	inbound chan []byte
	done    chan struct{}
}

// NewSession fails fast when the token is absent: no connection is ever
// attempted without one.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Token == "" {
		return nil, xerrors.ErrMissingToken
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 4 * time.Second
	}
	return &Session{
		cfg:     cfg,
		state:   StateDisconnected,
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}, nil
}

// OnStateChange registers an observer for state transitions. Observers run
// on the session goroutine and must not block.
func (s *Session) OnStateChange(fn func(StateChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Inbound delivers raw frames as received. Parsing is the subscriber's job
// so one malformed frame cannot take the connection down.
func (s *Session) Inbound() <-chan []byte {
	return s.inbound
}

// Start launches the connect/reconnect loop. Calling it twice is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.setState(StateConnecting, nil)
		conn, err := s.dial()
		if err != nil {
			log.Printf("[Session] connect to %s failed: %v", s.cfg.URL, err)
			s.setState(StateDisconnected, err)
			if !s.sleep() {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		s.setState(StateConnected, nil)
		err = s.serve(conn)

		s.mu.Lock()
		s.conn = nil
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		log.Printf("[Session] connection to %s lost: %v", s.cfg.URL, err)
		s.setState(StateDisconnected, err)
		if !s.sleep() {
			return
		}
	}
}

func (s *Session) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.Token)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(s.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// serve pumps inbound messages until the connection dies. The read deadline
// is a small multiple of the heartbeat interval and is extended on every
// pong and every message, so a silently dead peer is noticed within a few
// heartbeats instead of a TCP timeout.
func (s *Session) serve(conn *websocket.Conn) error {
	stop := make(chan struct{})
	go s.heartbeat(conn, stop)
	defer close(stop)
	defer conn.Close()

	deadline := 3 * s.cfg.Heartbeat
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(deadline))

		select {
		case s.inbound <- data:
		case <-s.done:
			return xerrors.ErrSessionClosed
		}
	}
}

func (s *Session) heartbeat(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			if err != nil {
				// Force the read loop out; the run loop handles reconnect.
				conn.Close()
				return
			}
		case <-stop:
			return
		case <-s.done:
			return
		}
	}
}

// Send writes a JSON command frame. It is refused, not queued, while the
// session is not connected.
func (s *Session) Send(v interface{}) error {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()

	if state != StateConnected || conn == nil {
		return xerrors.ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(v)
}

// Close tears the session down. Any pending reconnect timer is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		conn.Close()
	}
}

// sleep waits out the fixed reconnect delay; it returns false when the
// session was closed while waiting.
func (s *Session) sleep() bool {
	select {
	case <-time.After(s.cfg.ReconnectDelay):
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) setState(st State, err error) {
	s.mu.Lock()
	if s.closed && st != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = st
	observers := make([]func(StateChange), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	change := StateChange{State: st, Err: err}
	for _, fn := range observers {
		fn(change)
	}
}
