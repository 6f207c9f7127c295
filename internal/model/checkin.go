package model

import "time"

// Checkin is one "I'm still alive" record in the `checkins` table. At most
// one row exists per (user_id, date); the date is the user's local calendar
// day. The optional fields stay NULL when the user skipped them, and NULL
// values are excluded from averages rather than counted as zero.
type Checkin struct {
	ID         uint64    // checkins.id
	UserID     uint64    // checkins.user_id
	Date       time.Time // checkins.date (DATE, user-local calendar day)
	Alive      bool      // checkins.alive
	SleepHours *int      // checkins.sleep_hours (nullable)
	Energy     *int      // checkins.energy (nullable, 1..5)
	Mood       *int      // checkins.mood (nullable, 1..5)
	Note       *string   // checkins.note (nullable)
	CreatedAt  time.Time // checkins.created_at
	UpdatedAt  time.Time // checkins.updated_at
}
