package wshandler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/middleware"
	"github.com/chedlikh/greenspace-notify/internal/usecase"
	"github.com/chedlikh/greenspace-notify/pkg/notifier"
)

// readWait must outlast a few heartbeat intervals; the hub pings every 4s.
const readWait = 12 * time.Second

type WSHandler struct {
	hub *notifier.Hub
	uc  *usecase.NotificationUsecase
}

func NewWSHandler(hub *notifier.Hub, uc *usecase.NotificationUsecase) *WSHandler {
	return &WSHandler{hub: hub, uc: uc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: tighten with allowed origins once the admin UI domain is fixed
		return true
	},
}

// HandleNotifications upgrades HTTP -> WebSocket and registers the
// connection as a push target for the authenticated user. Inbound frames
// are mark-read commands; they mutate the backlog and are echoed back to
// every connection of the user.
func (h *WSHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}

	log.Printf("[WS] handshake: user=%s", userID)

	c := h.hub.Add(userID, conn)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		c.LastSeen = time.Now()
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.LastSeen = time.Now()
		conn.SetReadDeadline(time.Now().Add(readWait))
		h.handleCommand(r.Context(), userID, data)
	}

	h.hub.Remove(c)
}

// handleCommand applies one inbound command frame. Bad frames are logged
// and skipped; they never close the connection.
func (h *WSHandler) handleCommand(ctx context.Context, userID string, data []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("[WS] malformed command from user=%s: %v", userID, err)
		return
	}

	switch frame.Type {
	case domain.CmdMarkRead:
		id, err := strconv.ParseInt(frame.NotificationID, 10, 64)
		if err != nil {
			log.Printf("[WS] mark-read with bad id %q from user=%s", frame.NotificationID, userID)
			return
		}
		if err := h.uc.MarkAsRead(ctx, id, userID); err != nil {
			log.Printf("[WS] mark-read %d for user=%s failed: %v", id, userID, err)
		}

	case domain.CmdMarkAllRead:
		if err := h.uc.MarkAllAsRead(ctx, userID); err != nil {
			log.Printf("[WS] mark-all-read for user=%s failed: %v", userID, err)
		}

	default:
		log.Printf("[WS] unknown command type %q from user=%s", frame.Type, userID)
	}
}
