package client

import (
	"sync"

	"github.com/chedlikh/greenspace-notify/internal/domain"
)

// Store holds the canonical in-memory notification list, the unread count
// and the last transport error. Only the subscription manager and the
// action dispatcher mutate it; everything else reads.
type Store struct {
	mu     sync.RWMutex
	items  []domain.WireNotification
	unread int
	err    error
}

func NewStore() *Store {
	return &Store{}
}

// SetNotifications merges a freshly fetched batch into the list. Items whose
// id is already present are dropped; the new ones are prepended ahead of the
// existing entries, whose relative order is preserved. The unread count is
// recomputed over the whole resulting list rather than adjusted
// incrementally, so repeated merges cannot drift.
func (s *Store) SetNotifications(batch []domain.WireNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(s.items))
	for _, it := range s.items {
		present[it.ID] = struct{}{}
	}

	fresh := make([]domain.WireNotification, 0, len(batch))
	for _, it := range batch {
		if _, ok := present[it.ID]; ok {
			continue
		}
		present[it.ID] = struct{}{}
		fresh = append(fresh, it)
	}

	s.items = append(fresh, s.items...)
	s.unread = 0
	for _, it := range s.items {
		if !it.Read {
			s.unread++
		}
	}
}

// AddNotification prepends a single notification. Adding an id that is
// already present is a no-op.
func (s *Store) AddNotification(item domain.WireNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.ID == item.ID {
			return
		}
	}
	s.items = append([]domain.WireNotification{item}, s.items...)
	if !item.Read {
		s.unread++
	}
}

// MarkAsRead flips the matching entry to read. Unknown ids and entries that
// are already read leave the state untouched; the counter never goes
// negative.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if !s.items[i].Read {
			s.items[i].Read = true
			if s.unread > 0 {
				s.unread--
			}
		}
		return
	}
}

// MarkAllAsRead flips every entry and zeroes the counter.
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
}

// ClearNotifications empties the list, zeroes the counter and drops any
// stored error. The dedup registry is not part of this state and survives.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.unread = 0
	s.err = nil
}

// SetError records a transport or fetch error without touching the list, so
// the UI can show a connectivity banner next to already-loaded data.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Notifications returns a copy of the current list, newest first.
func (s *Store) Notifications() []domain.WireNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WireNotification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
