package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Notification kinds; the kind column is the authoritative status, the
// message is display text only.
const (
	NotifRemind            = "remind"
	NotifEncourage         = "encourage"
	NotifGroupJoinRequest  = "group_join_request"
	NotifGroupJoinApproved = "group_join_approved"
	NotifGroupJoinRejected = "group_join_rejected"
	NotifGroupJoined       = "group_joined"
)

// Notification is one inbox item.
type Notification struct {
	ID               uint64     `json:"id"`
	Kind             string     `json:"kind"`
	Message          string     `json:"message"`
	FromUserID       *uint64    `json:"from_user_id"`
	FromUserName     *string    `json:"from_user_name"`
	FromUserAvatar   *string    `json:"from_user_avatar"`
	RelatedGroupID   *uint64    `json:"related_group_id"`
	RelatedGroupName *string    `json:"related_group_name"`
	RelatedUserID    *uint64    `json:"related_user_id"`
	CreatedAt        time.Time  `json:"created_at"`
	ReadAt           *time.Time `json:"read_at"`
}

// Unread reports whether the item has not been marked read yet.
func (n Notification) Unread() bool { return n.ReadAt == nil }

// Notifications fetches the inbox, newest first. limit 0 means the server
// default.
func (c *Client) Notifications(ctx context.Context, limit int, unreadOnly bool) ([]Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	path := "/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Notification
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead marks one item read; repeating the call returns the
// same timestamp.
func (c *Client) MarkNotificationRead(ctx context.Context, id uint64) (time.Time, error) {
	var out struct {
		ID     uint64    `json:"id"`
		ReadAt time.Time `json:"read_at"`
	}
	if err := c.post(ctx, fmt.Sprintf("/notifications/%d/read", id), nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.ReadAt, nil
}

// MarkAllNotificationsRead marks every unread item with one shared instant
// and returns how many changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Count  int64     `json:"count"`
		ReadAt time.Time `json:"read_at"`
	}
	if err := c.post(ctx, "/notifications/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
