package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/chedlikh/greenspace-notify/internal/domain"
)

func TestDispatcherRefusesWhileDisconnected(t *testing.T) {
	s, err := NewSession(SessionConfig{URL: "ws://localhost:1/ws", Token: "tok"})
	require.NoError(t, err)

	store := NewStore()
	store.AddNotification(notif("1", false))

	d := NewDispatcher(s, store)
	d.MarkAsRead("1")
	require.Equal(t, 1, store.UnreadCount(), "offline actions are dropped, not applied")
	require.False(t, store.Notifications()[0].Read)

	d.MarkAllAsRead()
	require.Equal(t, 1, store.UnreadCount())
}

func TestDispatcherOptimisticFlipAndSend(t *testing.T) {
	received := make(chan domain.Frame, 8)
	_, url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for {
			var f domain.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			received <- f
		}
	})

	s, err := NewSession(SessionConfig{URL: url, Token: "tok"})
	require.NoError(t, err)
	s.Start()
	defer s.Close()
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	store := NewStore()
	store.AddNotification(notif("1", false))

	d := NewDispatcher(s, store)
	d.MarkAsRead("1")

	// Local flip happens immediately, without waiting for any ack.
	require.Equal(t, 0, store.UnreadCount())
	require.True(t, store.Notifications()[0].Read)

	select {
	case f := <-received:
		require.Equal(t, domain.CmdMarkRead, f.Type)
		require.Equal(t, "1", f.NotificationID)
	case <-time.After(2 * time.Second):
		t.Fatal("mark-read command never reached the server")
	}
}

func TestDispatcherMarkAllAsRead(t *testing.T) {
	received := make(chan domain.Frame, 8)
	_, url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for {
			var f domain.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			received <- f
		}
	})

	s, err := NewSession(SessionConfig{URL: url, Token: "tok"})
	require.NoError(t, err)
	s.Start()
	defer s.Close()
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	store := NewStore()
	store.AddNotification(notif("1", false))
	store.AddNotification(notif("2", false))

	d := NewDispatcher(s, store)
	d.MarkAllAsRead()
	require.Equal(t, 0, store.UnreadCount())

	select {
	case f := <-received:
		require.Equal(t, domain.CmdMarkAllRead, f.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("mark-all-read command never reached the server")
	}
}

func TestDispatcherIgnoresEmptyID(t *testing.T) {
	s, err := NewSession(SessionConfig{URL: "ws://localhost:1/ws", Token: "tok"})
	require.NoError(t, err)

	store := NewStore()
	store.AddNotification(notif("1", false))

	NewDispatcher(s, store).MarkAsRead("")
	require.Equal(t, 1, store.UnreadCount())
}
