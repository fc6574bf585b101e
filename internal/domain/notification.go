package domain

import (
	"context"
	"fmt"
	"time"
)

// Notification tells a user that someone replied to one of their messages.
type Notification struct {
	ID        int64
	UserID    int64
	MessageID int64
	Text      string
	CreatedAt time.Time
}

// ReplyNotificationText formats the text shown to a message owner.
func ReplyNotificationText(replier string, messageID int64) string {
	return fmt.Sprintf("%s replied to your message #%d", replier, messageID)
}

// NotificationRepository is the port for notification persistence.
type NotificationRepository interface {
	ListNotifications(ctx context.Context, userID int64) ([]Notification, error)
	DeleteNotifications(ctx context.Context, userID int64) (int64, error)
}
