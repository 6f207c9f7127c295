package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sileme/sileme/internal/model"
)

type CheckinRepo struct{ DB *sql.DB }

func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{DB: db} }

const checkinCols = "id,user_id,date,alive,sleep_hours,energy,mood,note,created_at,updated_at"

func scanCheckin(sc interface{ Scan(...any) error }) (model.Checkin, error) {
	var c model.Checkin
	var sleep, energy, mood sql.NullInt64
	var note sql.NullString
	err := sc.Scan(&c.ID, &c.UserID, &c.Date, &c.Alive, &sleep, &energy, &mood,
		&note, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Checkin{}, err
	}
	if sleep.Valid {
		v := int(sleep.Int64)
		c.SleepHours = &v
	}
	if energy.Valid {
		v := int(energy.Int64)
		c.Energy = &v
	}
	if mood.Valid {
		v := int(mood.Int64)
		c.Mood = &v
	}
	if note.Valid {
		c.Note = &note.String
	}
	return c, nil
}

// GetByDate returns the record for one calendar day, ErrNotFound when the
// user has not checked in that day.
func (r *CheckinRepo) GetByDate(ctx context.Context, userID uint64, day time.Time) (model.Checkin, error) {
	c, err := scanCheckin(r.DB.QueryRowContext(ctx,
		"SELECT "+checkinCols+" FROM checkins WHERE user_id=? AND date=? LIMIT 1",
		userID, day))
	if err == sql.ErrNoRows {
		return model.Checkin{}, ErrNotFound
	}
	return c, err
}

// Fields is the mutable part of a check-in.
type Fields struct {
	Alive      bool
	SleepHours *int
	Energy     *int
	Mood       *int
	Note       *string
}

// Upsert creates or overwrites the record for one day. The unique key on
// (user_id, date) makes this idempotent per calendar day.
func (r *CheckinRepo) Upsert(ctx context.Context, userID uint64, day time.Time, f Fields) (model.Checkin, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO checkins (user_id, date, alive, sleep_hours, energy, mood, note)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE alive=VALUES(alive), sleep_hours=VALUES(sleep_hours),
		 energy=VALUES(energy), mood=VALUES(mood), note=VALUES(note)`,
		userID, day, f.Alive, f.SleepHours, f.Energy, f.Mood, f.Note)
	if err != nil {
		return model.Checkin{}, err
	}
	return r.GetByDate(ctx, userID, day)
}

// UpdateByDate overwrites an existing record. ErrNotFound when the day has
// no record; the edit-window check happens in the handler before this call.
func (r *CheckinRepo) UpdateByDate(ctx context.Context, userID uint64, day time.Time, f Fields) (model.Checkin, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE checkins SET alive=?, sleep_hours=?, energy=?, mood=?, note=? WHERE user_id=? AND date=?",
		f.Alive, f.SleepHours, f.Energy, f.Mood, f.Note, userID, day)
	if err != nil {
		return model.Checkin{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 on a no-change update, so re-check existence.
		if _, err := r.GetByDate(ctx, userID, day); err != nil {
			return model.Checkin{}, err
		}
	}
	return r.GetByDate(ctx, userID, day)
}

// List returns records with optional date bounds, paging and ordering.
func (r *CheckinRepo) List(ctx context.Context, userID uint64, from, to *time.Time, limit, offset int, desc bool) ([]model.Checkin, error) {
	q := "SELECT " + checkinCols + " FROM checkins WHERE user_id=?"
	args := []any{userID}
	if from != nil {
		q += " AND date>=?"
		args = append(args, *from)
	}
	if to != nil {
		q += " AND date<=?"
		args = append(args, *to)
	}
	if desc {
		q += " ORDER BY date DESC"
	} else {
		q += " ORDER BY date ASC"
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Checkin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Range returns all records between two days inclusive, oldest first.
func (r *CheckinRepo) Range(ctx context.Context, userID uint64, from, to time.Time) ([]model.Checkin, error) {
	f, t := from, to
	return r.List(ctx, userID, &f, &t, 1000, 0, false)
}

// ExistsOn reports whether the user checked in on the given day.
func (r *CheckinRepo) ExistsOn(ctx context.Context, userID uint64, day time.Time) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM checkins WHERE user_id=? AND date=? LIMIT 1",
		userID, day).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountOnDay counts how many of the given users checked in on one day.
func (r *CheckinRepo) CountOnDay(ctx context.Context, userIDs []uint64, day time.Time) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	q := "SELECT COUNT(id) FROM checkins WHERE date=? AND user_id IN ("
	args := []any{day}
	for i, id := range userIDs {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, id)
	}
	q += ")"
	var n int
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
