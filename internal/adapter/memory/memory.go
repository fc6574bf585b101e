// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"msgboard/internal/domain"
)

// DB implements every domain repository in process memory. Nothing survives a
// restart.
type DB struct {
	mu            sync.Mutex
	messages      []*domain.Message
	notifications []domain.Notification
	users         []*domain.User
	sessions      map[string]*domain.Session

	messageIDCounter      int64
	replyIDCounter        int64
	notificationIDCounter int64
	userIDCounter         int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.MessageRepository = (*DB)(nil)
var _ domain.NotificationRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- MessageRepository ---

// CreateMessage appends a top-level message.
func (db *DB) CreateMessage(ctx context.Context, m domain.Message) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.messageIDCounter++
	m.ID = db.messageIDCounter
	m.UserID = copyID(m.UserID)
	m.CreatedAt = m.CreatedAt.UTC()
	m.Likes = 0
	m.Replies = nil
	db.messages = append(db.messages, &m)
	return m.ID, nil
}

// GetMessage returns a message by ID, or nil if it does not exist.
func (db *DB) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	m := db.findMessage(id)
	if m == nil {
		return nil, nil
	}
	c := cloneMessage(m)
	return &c, nil
}

// ListMessages returns all messages newest first.
func (db *DB) ListMessages(ctx context.Context) ([]domain.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.snapshot(func(*domain.Message) bool { return true }), nil
}

// ListMessagesByUser returns the messages owned by userID newest first.
func (db *DB) ListMessagesByUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.snapshot(func(m *domain.Message) bool { return m.OwnedBy(userID) }), nil
}

// CreateReply appends a reply to its message and records the notification,
// if any, under the same lock.
func (db *DB) CreateReply(ctx context.Context, r domain.Reply, n *domain.Notification) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	m := db.findMessage(r.MessageID)
	if m == nil {
		return 0, domain.ErrNotFound
	}
	if n != nil && db.findUser(n.UserID) == nil {
		return 0, domain.ErrNotFound
	}

	db.replyIDCounter++
	r.ID = db.replyIDCounter
	r.UserID = copyID(r.UserID)
	r.CreatedAt = r.CreatedAt.UTC()
	m.Replies = append(m.Replies, r)

	if n != nil {
		db.notificationIDCounter++
		note := *n
		note.ID = db.notificationIDCounter
		note.CreatedAt = note.CreatedAt.UTC()
		db.notifications = append(db.notifications, note)
	}
	return r.ID, nil
}

// IncrementLikes adds one like and returns the new total.
func (db *DB) IncrementLikes(ctx context.Context, id int64) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	m := db.findMessage(id)
	if m == nil {
		return 0, domain.ErrNotFound
	}
	m.Likes++
	return m.Likes, nil
}

func (db *DB) findMessage(id int64) *domain.Message {
	for _, m := range db.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (db *DB) snapshot(keep func(*domain.Message) bool) []domain.Message {
	result := make([]domain.Message, 0, len(db.messages))
	for _, m := range db.messages {
		if keep(m) {
			result = append(result, cloneMessage(m))
		}
	}

	// sort desc
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func cloneMessage(m *domain.Message) domain.Message {
	c := *m
	c.UserID = copyID(m.UserID)
	c.Replies = make([]domain.Reply, len(m.Replies))
	copy(c.Replies, m.Replies)
	return c
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// --- NotificationRepository ---

// ListNotifications returns the notifications owned by userID newest first.
func (db *DB) ListNotifications(ctx context.Context, userID int64) ([]domain.Notification, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []domain.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteNotifications removes every notification owned by userID.
func (db *DB) DeleteNotifications(ctx context.Context, userID int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	kept := db.notifications[:0]
	var removed int64
	for _, n := range db.notifications {
		if n.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	db.notifications = kept
	return removed, nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u := db.findUser(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrDuplicate
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	c := *u
	return &c, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

func (db *DB) findUser(id int64) *domain.User {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are returned so
// the caller can tell expiry apart from absence.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
