package domain

import (
	"context"
	"time"
)

// AnonymousAuthor is the display name used for posts without an author.
const AnonymousAuthor = "Anonymous"

// Message is a top-level post on the board.
type Message struct {
	ID        int64
	UserID    *int64
	Author    string
	Content   string
	Likes     int
	CreatedAt time.Time
	Replies   []Reply
}

// OwnedBy reports whether the message belongs to the given user.
func (m *Message) OwnedBy(userID int64) bool {
	return m.UserID != nil && *m.UserID == userID
}

// Reply is a post attached to exactly one message.
type Reply struct {
	ID        int64
	MessageID int64
	UserID    *int64
	Author    string
	Content   string
	CreatedAt time.Time
}

// MessageRepository is the port for message and reply persistence.
//
// ListMessages and ListMessagesByUser return messages newest first with their
// replies in creation order. GetMessage returns nil, nil for unknown ids.
// CreateReply stores the reply and, when n is non-nil, the notification in a
// single unit of work.
type MessageRepository interface {
	CreateMessage(ctx context.Context, m Message) (int64, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	ListMessages(ctx context.Context) ([]Message, error)
	ListMessagesByUser(ctx context.Context, userID int64) ([]Message, error)
	CreateReply(ctx context.Context, r Reply, n *Notification) (int64, error)
	IncrementLikes(ctx context.Context, id int64) (int, error)
}
