package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sileme/sileme/internal/model"
)

// FriendRepo owns the friendship graph: friendship rows, per-friend
// permission settings, and the reminder/encouragement logs.
type FriendRepo struct{ DB *sql.DB }

func NewFriendRepo(db *sql.DB) *FriendRepo { return &FriendRepo{DB: db} }

const friendshipCols = "id,user_id,friend_id,status,message,blocked_by,created_at,updated_at"

func scanFriendship(sc interface{ Scan(...any) error }) (model.Friendship, error) {
	var f model.Friendship
	var msg sql.NullString
	var blockedBy sql.NullInt64
	err := sc.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &msg, &blockedBy,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return model.Friendship{}, err
	}
	if msg.Valid {
		f.Message = &msg.String
	}
	if blockedBy.Valid {
		v := uint64(blockedBy.Int64)
		f.BlockedBy = &v
	}
	return f, nil
}

// FindBetween returns the single relationship row for an unordered pair,
// regardless of which side initiated it.
func (r *FriendRepo) FindBetween(ctx context.Context, a, b uint64) (model.Friendship, error) {
	f, err := scanFriendship(r.DB.QueryRowContext(ctx,
		"SELECT "+friendshipCols+" FROM friendships WHERE (user_id=? AND friend_id=?) OR (user_id=? AND friend_id=?) LIMIT 1",
		a, b, b, a))
	if err == sql.ErrNoRows {
		return model.Friendship{}, ErrNotFound
	}
	return f, err
}

// FindPendingTo returns the pending request from requester to recipient.
func (r *FriendRepo) FindPendingTo(ctx context.Context, requester, recipient uint64) (model.Friendship, error) {
	f, err := scanFriendship(r.DB.QueryRowContext(ctx,
		"SELECT "+friendshipCols+" FROM friendships WHERE user_id=? AND friend_id=? AND status=? LIMIT 1",
		requester, recipient, model.FriendStatusPending))
	if err == sql.ErrNoRows {
		return model.Friendship{}, ErrNotFound
	}
	return f, err
}

// Create inserts a directed pending request.
func (r *FriendRepo) Create(ctx context.Context, from, to uint64, message *string) (model.Friendship, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO friendships (user_id, friend_id, status, message) VALUES (?,?,?,?)",
		from, to, model.FriendStatusPending, message)
	if err != nil {
		return model.Friendship{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Friendship{}, err
	}
	f, err := scanFriendship(r.DB.QueryRowContext(ctx,
		"SELECT "+friendshipCols+" FROM friendships WHERE id=? LIMIT 1", id))
	return f, err
}

// Accept flips a row to accepted and clears any stale block marker.
func (r *FriendRepo) Accept(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE friendships SET status=?, blocked_by=NULL WHERE id=?",
		model.FriendStatusAccepted, id)
	return err
}

// UpdateMessage refreshes the greeting on an outstanding request.
func (r *FriendRepo) UpdateMessage(ctx context.Context, id uint64, message string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE friendships SET message=? WHERE id=?", message, id)
	return err
}

// ListForUser returns every relationship touching the user, both directions.
func (r *FriendRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Friendship, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+friendshipCols+" FROM friendships WHERE user_id=? OR friend_id=? ORDER BY created_at DESC",
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// EnsureSetting inserts the default permission row (view off, remind on) if
// owner has not configured one for friend yet.
func (r *FriendRepo) EnsureSetting(ctx context.Context, owner, friend uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO friend_settings (user_id, friend_id, can_view_detail, can_remind) VALUES (?,?,FALSE,TRUE)",
		owner, friend)
	return err
}

// GetSetting returns owner's permission grant toward friend. Absent rows
// fall back to the defaults rather than an error.
func (r *FriendRepo) GetSetting(ctx context.Context, owner, friend uint64) (model.FriendSetting, error) {
	var s model.FriendSetting
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,friend_id,can_view_detail,can_remind FROM friend_settings WHERE user_id=? AND friend_id=? LIMIT 1",
		owner, friend).Scan(&s.ID, &s.UserID, &s.FriendID, &s.CanViewDetail, &s.CanRemind)
	if err == sql.ErrNoRows {
		return model.FriendSetting{UserID: owner, FriendID: friend, CanViewDetail: false, CanRemind: true}, nil
	}
	if err != nil {
		return model.FriendSetting{}, err
	}
	return s, nil
}

// UpsertSetting writes owner's permission grant toward friend.
func (r *FriendRepo) UpsertSetting(ctx context.Context, owner, friend uint64, canView, canRemind bool) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO friend_settings (user_id, friend_id, can_view_detail, can_remind) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE can_view_detail=VALUES(can_view_detail), can_remind=VALUES(can_remind)`,
		owner, friend, canView, canRemind)
	return err
}

// ReminderSentOn reports whether sender already reminded recipient on the
// given calendar day. This is the write-time daily-limit check.
func (r *FriendRepo) ReminderSentOn(ctx context.Context, from, to uint64, day time.Time) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM reminders WHERE from_user_id=? AND to_user_id=? AND date=? LIMIT 1",
		from, to, day).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateReminder logs a reminder for the daily limit.
func (r *FriendRepo) CreateReminder(ctx context.Context, from, to uint64, day time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO reminders (from_user_id, to_user_id, date) VALUES (?,?,?)",
		from, to, day)
	return err
}

// CreateEncouragement logs a cheer; there is no daily limit on these.
func (r *FriendRepo) CreateEncouragement(ctx context.Context, from, to uint64, day time.Time, emoji string, message *string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO encouragements (from_user_id, to_user_id, checkin_date, emoji, message) VALUES (?,?,?,?,?)",
		from, to, day, emoji, message)
	return err
}
