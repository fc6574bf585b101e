package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"msgboard/internal/domain"
)

var (
	// ErrEmptyContent indicates a post or reply without text. Callers treat it
	// as a no-op.
	ErrEmptyContent = errors.New("content is required")
	// ErrMessageNotFound indicates that the target message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)

// BoardService encapsulates posting, replying, liking and listing.
type BoardService struct {
	repo domain.MessageRepository
	now  func() time.Time
}

// NewBoardService creates a BoardService backed by the given repository.
func NewBoardService(repo domain.MessageRepository) *BoardService {
	return &BoardService{repo: repo, now: time.Now}
}

// Post is the input for a new message or reply. User is the authenticated
// author, if any; Name is the free-text author name for anonymous posts.
type Post struct {
	Content string
	Name    string
	User    *domain.User
}

func (p Post) author() (string, *int64) {
	if p.User != nil {
		id := p.User.ID
		return p.User.Username, &id
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		return name, nil
	}
	return domain.AnonymousAuthor, nil
}

// List returns every message newest first, each with its replies.
func (s *BoardService) List(ctx context.Context) ([]domain.Message, error) {
	return s.repo.ListMessages(ctx)
}

// Post stores a new top-level message.
func (s *BoardService) Post(ctx context.Context, p Post) (int64, error) {
	if strings.TrimSpace(p.Content) == "" {
		return 0, ErrEmptyContent
	}
	author, userID := p.author()
	return s.repo.CreateMessage(ctx, domain.Message{
		UserID:    userID,
		Author:    author,
		Content:   p.Content,
		CreatedAt: s.now(),
	})
}

// Reply attaches a reply to messageID. When the message is owned by a user
// other than the replier, a notification is created for the owner.
func (s *BoardService) Reply(ctx context.Context, messageID int64, p Post) (int64, error) {
	if strings.TrimSpace(p.Content) == "" {
		return 0, ErrEmptyContent
	}

	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return 0, fmt.Errorf("get message %d: %w", messageID, err)
	}
	if msg == nil {
		return 0, ErrMessageNotFound
	}

	author, userID := p.author()
	now := s.now()

	var note *domain.Notification
	if msg.UserID != nil && (userID == nil || !msg.OwnedBy(*userID)) {
		note = &domain.Notification{
			UserID:    *msg.UserID,
			MessageID: msg.ID,
			Text:      domain.ReplyNotificationText(author, msg.ID),
			CreatedAt: now,
		}
	}

	id, err := s.repo.CreateReply(ctx, domain.Reply{
		MessageID: msg.ID,
		UserID:    userID,
		Author:    author,
		Content:   p.Content,
		CreatedAt: now,
	}, note)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, ErrMessageNotFound
	}
	return id, err
}

// Like increments the like counter of a message and returns the new total.
func (s *BoardService) Like(ctx context.Context, messageID int64) (int, error) {
	likes, err := s.repo.IncrementLikes(ctx, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, ErrMessageNotFound
	}
	return likes, err
}
