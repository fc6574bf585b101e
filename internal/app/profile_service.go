package app

import (
	"context"
	"fmt"

	"msgboard/internal/domain"
)

// ProfileService encapsulates profile pages and notification housekeeping.
type ProfileService struct {
	users         domain.UserRepository
	messages      domain.MessageRepository
	notifications domain.NotificationRepository
}

// NewProfileService creates a ProfileService backed by the given repositories.
func NewProfileService(users domain.UserRepository, messages domain.MessageRepository, notifications domain.NotificationRepository) *ProfileService {
	return &ProfileService{users: users, messages: messages, notifications: notifications}
}

// Profile is what a profile page shows. Notifications is only populated when
// the viewer owns the profile.
type Profile struct {
	User          *domain.User
	Messages      []domain.Message
	Notifications []domain.Notification
	IsOwner       bool
}

// Get loads the profile of username as seen by viewer (nil for anonymous).
func (s *ProfileService) Get(ctx context.Context, username string, viewer *domain.User) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	msgs, err := s.messages.ListMessagesByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	p := &Profile{User: user, Messages: msgs}
	if viewer != nil && viewer.ID == user.ID {
		p.IsOwner = true
		p.Notifications, err = s.notifications.ListNotifications(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
	}
	return p, nil
}

// ClearNotifications deletes every notification owned by userID and returns
// how many were removed.
func (s *ProfileService) ClearNotifications(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.DeleteNotifications(ctx, userID)
}
