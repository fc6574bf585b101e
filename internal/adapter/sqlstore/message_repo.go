package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"msgboard/internal/domain"
)

var _ domain.MessageRepository = (*DB)(nil)

const messageColumns = "id, user_id, author, content, likes, created_at"

// CreateMessage inserts a top-level message.
func (d *DB) CreateMessage(ctx context.Context, m domain.Message) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO messages(user_id, author, content, likes, created_at) VALUES($1, $2, $3, 0, $4) RETURNING id;",
		nullableID(m.UserID), m.Author, m.Content, m.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// GetMessage returns a message with its replies, or nil if it does not exist.
func (d *DB) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	msgs, err := d.listMessages(ctx, " WHERE id=$1", id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// ListMessages returns every message newest first.
func (d *DB) ListMessages(ctx context.Context) ([]domain.Message, error) {
	return d.listMessages(ctx, "")
}

// ListMessagesByUser returns the messages owned by userID newest first.
func (d *DB) ListMessagesByUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	return d.listMessages(ctx, " WHERE user_id=$1", userID)
}

// CreateReply inserts a reply and, when n is non-nil, its notification in one
// transaction.
func (d *DB) CreateReply(ctx context.Context, r domain.Reply, n *domain.Notification) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM messages WHERE id=$1;", r.MessageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO replies(message_id, user_id, author, content, created_at) VALUES($1, $2, $3, $4, $5) RETURNING id;",
		r.MessageID, nullableID(r.UserID), r.Author, r.Content, r.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reply: %w", err)
	}

	if n != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO notifications(user_id, message_id, text, created_at) VALUES($1, $2, $3, $4);",
			n.UserID, n.MessageID, n.Text, n.CreatedAt.UTC(),
		); err != nil {
			return 0, fmt.Errorf("insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// IncrementLikes adds one like and returns the new total.
func (d *DB) IncrementLikes(ctx context.Context, id int64) (int, error) {
	var likes int
	err := d.sql.QueryRowContext(ctx,
		"UPDATE messages SET likes = likes + 1 WHERE id=$1 RETURNING likes;", id,
	).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return likes, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (domain.Message, error) {
	var (
		m      domain.Message
		userID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &userID, &m.Author, &m.Content, &m.Likes, &m.CreatedAt); err != nil {
		return domain.Message{}, err
	}
	m.UserID = idPtr(userID)
	return m, nil
}

// listMessages loads the messages matching where (a filter on the messages
// table, or empty) and their replies. Replies are selected with the same
// filter as a subquery, so the bound arguments do not grow with the result.
func (d *DB) listMessages(ctx context.Context, where string, args ...any) ([]domain.Message, error) {
	out, err := d.queryMessages(ctx,
		"SELECT "+messageColumns+" FROM messages"+where+" ORDER BY created_at DESC, id DESC;", args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	// The message rows must be closed first: SQLite runs on one connection.
	if err := d.attachReplies(ctx, out, where, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// attachReplies loads the replies of the messages selected by where and
// attaches them to msgs in creation order. Replies of messages that are not
// in msgs (inserted between the two queries) are skipped.
func (d *DB) attachReplies(ctx context.Context, msgs []domain.Message, where string, args ...any) error {
	index := make(map[int64]int, len(msgs))
	for i, m := range msgs {
		index[m.ID] = i
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, message_id, user_id, author, content, created_at FROM replies"+
			" WHERE message_id IN (SELECT id FROM messages"+where+")"+
			" ORDER BY created_at ASC, id ASC;", args...)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			r      domain.Reply
			userID sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.MessageID, &userID, &r.Author, &r.Content, &r.CreatedAt); err != nil {
			return err
		}
		r.UserID = idPtr(userID)
		i, ok := index[r.MessageID]
		if !ok {
			continue
		}
		msgs[i].Replies = append(msgs[i].Replies, r)
	}
	return rows.Err()
}
