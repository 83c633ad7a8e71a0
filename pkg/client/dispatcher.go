package client

import (
	"log"

	"github.com/chedlikh/greenspace-notify/internal/domain"
)

// Dispatcher translates user intent into an optimistic store mutation plus
// an outbound command frame. The two steps are independent: the local flip
// is never rolled back and no acknowledgement is awaited, so a backend
// failure leaves the states inconsistent until the next bootstrap fetch.
// Actions taken while disconnected are refused outright, not queued.
type Dispatcher struct {
	session *Session
	store   *Store
}

func NewDispatcher(session *Session, store *Store) *Dispatcher {
	return &Dispatcher{session: session, store: store}
}

func (d *Dispatcher) MarkAsRead(id string) {
	if id == "" {
		log.Printf("[Dispatcher] mark-read without id, ignoring")
		return
	}
	if d.session.State() != StateConnected {
		log.Printf("[Dispatcher] not connected, dropping mark-read for %s", id)
		return
	}

	d.store.MarkAsRead(id)
	if err := d.session.Send(domain.Frame{Type: domain.CmdMarkRead, NotificationID: id}); err != nil {
		log.Printf("[Dispatcher] mark-read send for %s failed: %v", id, err)
	}
}

func (d *Dispatcher) MarkAllAsRead() {
	if d.session.State() != StateConnected {
		log.Printf("[Dispatcher] not connected, dropping mark-all-read")
		return
	}

	d.store.MarkAllAsRead()
	if err := d.session.Send(domain.Frame{Type: domain.CmdMarkAllRead}); err != nil {
		log.Printf("[Dispatcher] mark-all-read send failed: %v", err)
	}
}
