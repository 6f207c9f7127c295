package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sileme/sileme/internal/model"
)

type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts one notification row.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (user_id, from_user_id, related_group_id, related_user_id, kind, message) VALUES (?,?,?,?,?,?)",
		n.UserID, n.FromUserID, n.RelatedGroupID, n.RelatedUserID, n.Kind, n.Message)
	return err
}

// CreateBatch fans one message out to many inboxes in a single transaction.
func (r *NotificationRepo) CreateBatch(ctx context.Context, userIDs []uint64, n model.Notification) error {
	if len(userIDs) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, uid := range userIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO notifications (user_id, from_user_id, related_group_id, related_user_id, kind, message) VALUES (?,?,?,?,?,?)",
			uid, n.FromUserID, n.RelatedGroupID, n.RelatedUserID, n.Kind, n.Message); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns the user's notifications newest-first.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, limit int, unreadOnly bool) ([]model.Notification, error) {
	q := "SELECT id,user_id,from_user_id,related_group_id,related_user_id,kind,message,created_at,read_at FROM notifications WHERE user_id=?"
	if unreadOnly {
		q += " AND read_at IS NULL"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"

	rows, err := r.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var from, group, rel sql.NullInt64
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &from, &group, &rel, &n.Kind, &n.Message,
			&n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if from.Valid {
			v := uint64(from.Int64)
			n.FromUserID = &v
		}
		if group.Valid {
			v := uint64(group.Int64)
			n.RelatedGroupID = &v
		}
		if rel.Valid {
			v := uint64(rel.Int64)
			n.RelatedUserID = &v
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets read_at on one notification. Marking an already-read row is
// a no-op and the original timestamp is returned unchanged.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) (time.Time, error) {
	var readAt sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT read_at FROM notifications WHERE id=? AND user_id=? LIMIT 1",
		id, userID).Scan(&readAt)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	if readAt.Valid {
		return readAt.Time, nil
	}
	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx,
		"UPDATE notifications SET read_at=? WHERE id=? AND user_id=? AND read_at IS NULL",
		now, id, userID)
	if err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// MarkAllRead stamps every unread notification with the same instant.
// Already-read rows keep their timestamps, which makes a second call a
// no-op that reports zero.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, time.Time, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET read_at=? WHERE user_id=? AND read_at IS NULL",
		now, userID)
	if err != nil {
		return 0, time.Time{}, err
	}
	n, _ := res.RowsAffected()
	return n, now, nil
}
