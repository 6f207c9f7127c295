package model

import "time"

// Group privacy values and member roles/statuses as stored in MySQL.
const (
	GroupPrivacyPublic  = "public"
	GroupPrivacyPrivate = "private"

	GroupRoleOwner  = "owner"
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"

	MemberStatusPending  = "pending"
	MemberStatusAccepted = "accepted"
)

// Group mirrors the `groups` table. Every group carries a join code, but the
// code is only surfaced (and required) for private groups. Exactly one
// member holds the owner role.
type Group struct {
	ID               uint64    // groups.id
	Name             string    // groups.name
	Privacy          string    // groups.privacy (public|private)
	RequiresApproval bool      // groups.requires_approval (meaningful for public only)
	Announcement     *string   // groups.announcement (nullable)
	JoinCode         string    // groups.join_code (4 digits, unique)
	OwnerID          uint64    // groups.owner_id
	CreatedAt        time.Time // groups.created_at
}

// GroupMember is one (user, group) membership row. Status pending means a
// join request awaiting approval; RequestedAt drives the 24h re-apply
// cooldown.
type GroupMember struct {
	ID          uint64     // group_members.id
	GroupID     uint64     // group_members.group_id
	UserID      uint64     // group_members.user_id
	Role        string     // group_members.role (owner|admin|member)
	Status      string     // group_members.status (pending|accepted)
	RequestedAt time.Time  // group_members.requested_at
	ApprovedAt  *time.Time // group_members.approved_at (nullable)
}

// GroupEncouragement is one entry on a group's encouragement wall.
type GroupEncouragement struct {
	ID        uint64    // group_encouragements.id
	GroupID   uint64    // group_encouragements.group_id
	UserID    uint64    // group_encouragements.user_id
	Emoji     string    // group_encouragements.emoji
	Message   *string   // group_encouragements.message (nullable)
	CreatedAt time.Time // group_encouragements.created_at
}

// GroupReminder logs a member poking the whole group to check in.
type GroupReminder struct {
	ID        uint64    // group_reminders.id
	GroupID   uint64    // group_reminders.group_id
	UserID    uint64    // group_reminders.user_id
	CreatedAt time.Time // group_reminders.created_at
}
