package model

import "time"

// Notification kinds. The kind column is the authoritative status of a
// notification: approve/reject mutations rewrite the kind of the originating
// group_join_request row, and readers must never infer state from the
// message text.
const (
	NotifRemind            = "remind"
	NotifEncourage         = "encourage"
	NotifGroupJoinRequest  = "group_join_request"
	NotifGroupJoinApproved = "group_join_approved"
	NotifGroupJoinRejected = "group_join_rejected"
	NotifGroupJoined       = "group_joined"
)

// Notification mirrors the `notifications` table. ReadAt is NULL while
// unread; marking read is monotonic and never clears the timestamp.
type Notification struct {
	ID             uint64     // notifications.id
	UserID         uint64     // notifications.user_id (the inbox owner)
	FromUserID     *uint64    // notifications.from_user_id (nullable)
	RelatedGroupID *uint64    // notifications.related_group_id (nullable)
	RelatedUserID  *uint64    // notifications.related_user_id (nullable)
	Kind           string     // notifications.kind
	Message        string     // notifications.message
	CreatedAt      time.Time  // notifications.created_at
	ReadAt         *time.Time // notifications.read_at (nullable)
}
