package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"msgboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite://" + filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func openPostgres(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.sql.Exec("TRUNCATE users, sessions, messages, replies, notifications RESTART IDENTITY CASCADE;")
	require.NoError(t, err)
	return db
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		wantErr bool
	}{
		{"postgres://u:p@localhost/board", "postgres", false},
		{"postgresql://localhost/board", "postgres", false},
		{"sqlite://msgboard.db", "sqlite3", false},
		{"file:msgboard.db", "sqlite3", false},
		{"./data/msgboard.db", "sqlite3", false},
		{"mysql://localhost/board", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			d, _, err := parseURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.driver, d.driver)
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:board.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("board.db?cache=shared"))
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, openSQLite)
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, openPostgres)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	ctx := context.Background()

	db, err := Open("sqlite://" + path)
	require.NoError(t, err)
	_, err = db.CreateMessage(ctx, domain.Message{Author: domain.AnonymousAuthor, Content: "survives", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open("sqlite://" + path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	msgs, err := db.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "survives", msgs[0].Content)
}

func TestSQLiteListBeyondVariableLimit(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	const total = 33000 // above SQLite's 32766 bound-variable limit

	_, err := db.sql.ExecContext(ctx, `WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n+1 FROM seq WHERE n < 33000)
INSERT INTO messages(user_id, author, content, likes, created_at)
SELECT NULL, 'bulk', 'message ' || n, 0, $1 FROM seq;`, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = db.CreateReply(ctx, domain.Reply{MessageID: 1, Author: "Anonymous", Content: "first", CreatedAt: time.Now()}, nil)
	require.NoError(t, err)
	_, err = db.CreateReply(ctx, domain.Reply{MessageID: total, Author: "Anonymous", Content: "last", CreatedAt: time.Now()}, nil)
	require.NoError(t, err)

	msgs, err := db.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, total)

	// Equal timestamps fall back to id order, newest first.
	assert.Equal(t, int64(total), msgs[0].ID)
	require.Len(t, msgs[0].Replies, 1)
	assert.Equal(t, "last", msgs[0].Replies[0].Content)
	assert.Equal(t, int64(1), msgs[total-1].ID)
	require.Len(t, msgs[total-1].Replies, 1)
	assert.Equal(t, "first", msgs[total-1].Replies[0].Content)

	m, err := db.GetMessage(ctx, total)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Len(t, m.Replies, 1)
}

func runStoreSuite(t *testing.T, open func(*testing.T) *DB) {
	t.Run("Users", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		u, err := db.Create(ctx, "alice", "hash1")
		require.NoError(t, err)
		assert.NotZero(t, u.ID)

		_, err = db.Create(ctx, "alice", "hash2")
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		got, err := db.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hash1", got.PasswordHash)

		byID, err := db.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "alice", byID.Username)

		missing, err := db.GetByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)

		n, err := db.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Sessions", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()
		repo := NewSessionRepo(db)

		u, err := db.Create(ctx, "bob", "hash")
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, u.ID, "live", time.Now().Add(time.Hour)))
		require.NoError(t, repo.Create(ctx, u.ID, "stale", time.Now().Add(-time.Hour)))

		s, err := repo.GetByToken(ctx, "live")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, u.ID, s.UserID)

		require.NoError(t, repo.DeleteExpired(ctx))
		stale, err := repo.GetByToken(ctx, "stale")
		require.NoError(t, err)
		assert.Nil(t, stale)

		require.NoError(t, repo.Delete(ctx, "live"))
		gone, err := repo.GetByToken(ctx, "live")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("MessagesNewestFirst", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		u, err := db.Create(ctx, "carol", "hash")
		require.NoError(t, err)

		t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		_, err = db.CreateMessage(ctx, domain.Message{Author: domain.AnonymousAuthor, Content: "older", CreatedAt: t1})
		require.NoError(t, err)
		newer, err := db.CreateMessage(ctx, domain.Message{UserID: &u.ID, Author: "carol", Content: "newer", CreatedAt: t1.Add(time.Second)})
		require.NoError(t, err)

		msgs, err := db.ListMessages(ctx)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "newer", msgs[0].Content)
		assert.Equal(t, "older", msgs[1].Content)
		assert.Nil(t, msgs[1].UserID)
		require.NotNil(t, msgs[0].UserID)
		assert.Equal(t, u.ID, *msgs[0].UserID)
		assert.True(t, msgs[1].CreatedAt.Equal(t1))

		mine, err := db.ListMessagesByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, newer, mine[0].ID)

		missing, err := db.GetMessage(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("RepliesAndNotifications", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		owner, err := db.Create(ctx, "dave", "hash")
		require.NoError(t, err)
		other, err := db.Create(ctx, "erin", "hash")
		require.NoError(t, err)

		now := time.Now().UTC()
		msgID, err := db.CreateMessage(ctx, domain.Message{UserID: &owner.ID, Author: "dave", Content: "topic", CreatedAt: now})
		require.NoError(t, err)

		note := &domain.Notification{UserID: owner.ID, MessageID: msgID, Text: domain.ReplyNotificationText("erin", msgID), CreatedAt: now}
		_, err = db.CreateReply(ctx, domain.Reply{MessageID: msgID, UserID: &other.ID, Author: "erin", Content: "first", CreatedAt: now.Add(time.Second)}, note)
		require.NoError(t, err)
		_, err = db.CreateReply(ctx, domain.Reply{MessageID: msgID, Author: domain.AnonymousAuthor, Content: "second", CreatedAt: now.Add(2 * time.Second)}, nil)
		require.NoError(t, err)

		m, err := db.GetMessage(ctx, msgID)
		require.NoError(t, err)
		require.NotNil(t, m)
		require.Len(t, m.Replies, 2)
		assert.Equal(t, "first", m.Replies[0].Content)
		assert.Equal(t, "second", m.Replies[1].Content)
		assert.Nil(t, m.Replies[1].UserID)

		notes, err := db.ListNotifications(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, domain.ReplyNotificationText("erin", msgID), notes[0].Text)

		otherNotes, err := db.ListNotifications(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, otherNotes)

		_, err = db.CreateReply(ctx, domain.Reply{MessageID: 9999, Author: "x", Content: "y", CreatedAt: now}, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// Clearing only touches the owner's notifications.
		_, err = db.CreateReply(ctx, domain.Reply{MessageID: msgID, Author: "dave", Content: "z", CreatedAt: now},
			&domain.Notification{UserID: other.ID, MessageID: msgID, Text: "for erin", CreatedAt: now})
		require.NoError(t, err)

		removed, err := db.DeleteNotifications(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		otherNotes, err = db.ListNotifications(ctx, other.ID)
		require.NoError(t, err)
		assert.Len(t, otherNotes, 1)
	})

	t.Run("Likes", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		id, err := db.CreateMessage(ctx, domain.Message{Author: domain.AnonymousAuthor, Content: "likeable", CreatedAt: time.Now()})
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			n, err := db.IncrementLikes(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}

		m, err := db.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 5, m.Likes)

		_, err = db.IncrementLikes(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
