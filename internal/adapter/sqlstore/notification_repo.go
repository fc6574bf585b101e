package sqlstore

import (
	"context"

	"msgboard/internal/domain"
)

var _ domain.NotificationRepository = (*DB)(nil)

// ListNotifications returns the notifications owned by userID newest first.
func (d *DB) ListNotifications(ctx context.Context, userID int64) ([]domain.Notification, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, message_id, text, created_at FROM notifications WHERE user_id=$1 ORDER BY created_at DESC, id DESC;", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageID, &n.Text, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNotifications removes every notification owned by userID.
func (d *DB) DeleteNotifications(ctx context.Context, userID int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM notifications WHERE user_id=$1;", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
