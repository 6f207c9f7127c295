package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrPhoneExists = errors.New("phone already registered")

const userCols = "id,phone,password_hash,timezone,nickname,avatar_url,wechat,email,alarm_hours,estate_note,last_checkin_at,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var last sql.NullTime
	err := row.Scan(&u.ID, &u.Phone, &u.PasswordHash, &u.Timezone, &u.Nickname,
		&u.AvatarURL, &u.Wechat, &u.Email, &u.AlarmHours, &u.EstateNote,
		&last, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if last.Valid {
		u.LastCheckinAt = &last.Time
	}
	return u, nil
}

// Create inserts a user with a bcrypt-hashed password and returns its ID.
// The phone must already be normalized by the caller.
func (r *UserRepo) Create(ctx context.Context, phone, password, timezone string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (phone, password_hash, timezone, alarm_hours) VALUES (?,?,?,24)",
		phone, hash, timezone)
	if err != nil {
		// 1062 = MySQL duplicate key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByPhone fetches a user by normalized phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE phone=? LIMIT 1", phone))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// ProfileUpdate carries the optional profile fields; nil pointers leave the
// corresponding column untouched.
type ProfileUpdate struct {
	Nickname   *string
	AvatarURL  *string
	Wechat     *string
	Email      *string
	AlarmHours *int
	EstateNote *string
	Timezone   *string
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) (model.User, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Nickname != nil {
		add("nickname", *p.Nickname)
	}
	if p.AvatarURL != nil {
		add("avatar_url", *p.AvatarURL)
	}
	if p.Wechat != nil {
		add("wechat", *p.Wechat)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.AlarmHours != nil {
		add("alarm_hours", *p.AlarmHours)
	}
	if p.EstateNote != nil {
		add("estate_note", *p.EstateNote)
	}
	if p.Timezone != nil {
		add("timezone", *p.Timezone)
	}
	if len(sets) > 0 {
		args = append(args, id)
		_, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
		if err != nil {
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// TouchLastCheckin records the most recent check-in instant on the user row.
func (r *UserRepo) TouchLastCheckin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_checkin_at=? WHERE id=?", at, id)
	return err
}

// ListContacts returns a user's emergency contacts in stored order.
func (r *UserRepo) ListContacts(ctx context.Context, userID uint64) ([]model.Contact, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,name,phone,relation,position FROM contacts WHERE user_id=? ORDER BY position, id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relation, &c.Position); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceContacts swaps the full contact list in one transaction so the
// server stays the single source of truth.
func (r *UserRepo) ReplaceContacts(ctx context.Context, userID uint64, contacts []model.Contact) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM contacts WHERE user_id=?", userID); err != nil {
		return err
	}
	for i, c := range contacts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO contacts (user_id, name, phone, relation, position) VALUES (?,?,?,?,?)",
			userID, c.Name, c.Phone, c.Relation, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}
