package domain

import "time"

// NotificationType defines category of notifications
type NotificationType string

const (
	General    NotificationType = "GENERAL"
	System     NotificationType = "SYSTEM"
	Assignment NotificationType = "ASSIGNMENT"
	Security   NotificationType = "SECURITY"
)

// Notification is the stored entity. ReadAt is nil while unread.
type Notification struct {
	ID        int64
	RequestID string
	UserID    string
	Type      string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// Wire converts the entity to the JSON shape clients consume.
func (n *Notification) Wire() WireNotification {
	return WireNotification{
		ID:        FormatID(n.ID),
		Type:      n.Type,
		Message:   n.Message,
		Read:      n.Read(),
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
