package model

import "time"

// Friendship statuses as stored in friendships.status. A pending row is
// directed (user_id requested friend_id); accepted rows are symmetric.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusBlocked  = "blocked"
)

// Friendship mirrors the `friendships` table. Exactly one row exists per
// unordered user pair; direction is only meaningful while status is pending.
type Friendship struct {
	ID        uint64    // friendships.id
	UserID    uint64    // friendships.user_id (requester)
	FriendID  uint64    // friendships.friend_id (recipient)
	Status    string    // friendships.status
	Message   *string   // friendships.message (request greeting, nullable)
	BlockedBy *uint64   // friendships.blocked_by (nullable)
	CreatedAt time.Time // friendships.created_at
	UpdatedAt time.Time // friendships.updated_at
}

// FriendSetting is the permission object a user grants to one friend: it is
// owned by user_id (the viewed/reminded party) and enforced when friend_id
// reads their detail or sends a reminder.
type FriendSetting struct {
	ID            uint64 // friend_settings.id
	UserID        uint64 // friend_settings.user_id (permission owner)
	FriendID      uint64 // friend_settings.friend_id (the party being granted)
	CanViewDetail bool   // friend_settings.can_view_detail
	CanRemind     bool   // friend_settings.can_remind
}

// Reminder records one "go check in" nudge. The unique key
// (from_user_id, to_user_id, date) is what enforces the one-per-day limit.
type Reminder struct {
	ID         uint64    // reminders.id
	FromUserID uint64    // reminders.from_user_id
	ToUserID   uint64    // reminders.to_user_id
	Date       time.Time // reminders.date (recipient-local calendar day)
	CreatedAt  time.Time // reminders.created_at
}

// Encouragement logs a cheer sent to a friend. Unlimited per day.
type Encouragement struct {
	ID          uint64    // encouragements.id
	FromUserID  uint64    // encouragements.from_user_id
	ToUserID    uint64    // encouragements.to_user_id
	CheckinDate time.Time // encouragements.checkin_date
	Emoji       string    // encouragements.emoji
	Message     *string   // encouragements.message (nullable)
	CreatedAt   time.Time // encouragements.created_at
}
