package model

import "time"

// User mirrors the `users` table. Phone numbers are stored normalized
// (digits only, no country code). AlarmHours is how long a user may stay
// silent before contacts should worry; it is bounded to 1..72 at the
// handler layer.
type User struct {
	ID            uint64     // users.id
	Phone         string     // users.phone (unique, normalized)
	PasswordHash  string     // users.password_hash
	Timezone      string     // users.timezone (IANA name)
	Nickname      string     // users.nickname
	AvatarURL     string     // users.avatar_url
	Wechat        string     // users.wechat
	Email         string     // users.email
	AlarmHours    int        // users.alarm_hours (1..72, default 24)
	EstateNote    string     // users.estate_note
	LastCheckinAt *time.Time // users.last_checkin_at (nullable)
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     time.Time  // users.updated_at
}

// DisplayName is the label shown to other users: nickname when set,
// otherwise the phone number.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Phone
}

// RefreshToken models an entry in the `refresh_tokens` table. Each row is a
// logged-in device: the plain token is never stored, only its SHA-256 hash.
// A row with a non-null RevokedAt can never be used again; rotation revokes
// the old row and inserts a new one.
type RefreshToken struct {
	ID         uint64     // refresh_tokens.id (the refresh_token_id handed to clients)
	UserID     uint64     // refresh_tokens.user_id
	TokenHash  string     // refresh_tokens.token_hash (SHA-256 hex digest)
	DeviceName string     // refresh_tokens.device_name
	UserAgent  string     // refresh_tokens.user_agent
	IPAddress  string     // refresh_tokens.ip_address
	ExpiresAt  time.Time  // refresh_tokens.expires_at
	RevokedAt  *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt  time.Time  // refresh_tokens.created_at
}

// Contact is one emergency contact row in the `contacts` table. Contacts are
// server-backed only; the client never keeps an independent copy.
type Contact struct {
	ID       uint64 // contacts.id
	UserID   uint64 // contacts.user_id
	Name     string // contacts.name
	Phone    string // contacts.phone
	Relation string // contacts.relation
	Position int    // contacts.position (stable ordering)
}
