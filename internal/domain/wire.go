package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Push frame types (server -> client)
const (
	FrameNewNotification = "new-notification"
	FrameMarkedRead      = "marked-read"
	FrameMarkedAllRead   = "marked-all-read"
)

// Command frame types (client -> server)
const (
	CmdMarkRead    = "mark-read"
	CmdMarkAllRead = "mark-all-read"
)

// FallbackMessage is substituted when a frame carries no message text.
const FallbackMessage = "You have a new notification"

// Frame is one discrete message on the push channel, in either direction.
// Notification is set for new-notification frames, NotificationID for
// mark-read commands and marked-read echoes.
type Frame struct {
	Type           string            `json:"type"`
	Notification   *WireNotification `json:"notification,omitempty"`
	NotificationID string            `json:"notificationId,omitempty"`
}

// WireNotification is the canonical JSON shape of a notification as seen by
// clients. Decoding normalizes every accepted wire variant: ids arrive as
// integers or strings, the read flag is spelled either "read" or "isRead",
// and missing message/type/createdAt get fallbacks. Nothing outside this
// type may look at the raw field names.
type WireNotification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

func (n *WireNotification) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Type      string          `json:"type"`
		Message   string          `json:"message"`
		Read      *bool           `json:"read"`
		IsRead    *bool           `json:"isRead"`
		CreatedAt string          `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.ID = normalizeID(raw.ID)
	n.Type = raw.Type
	if n.Type == "" {
		n.Type = string(General)
	}
	n.Message = raw.Message
	if n.Message == "" {
		n.Message = FallbackMessage
	}
	switch {
	case raw.Read != nil:
		n.Read = *raw.Read
	case raw.IsRead != nil:
		n.Read = *raw.IsRead
	default:
		n.Read = false
	}
	n.CreatedAt = raw.CreatedAt
	if n.CreatedAt == "" {
		n.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

// normalizeID maps an id of any wire representation to its string form.
func normalizeID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	// Not a JSON string: integer ids are kept verbatim.
	return s
}

// FormatID renders a storage id in its canonical wire form.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
