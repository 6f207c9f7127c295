package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sileme/sileme/pkg/phone"
)

// Friend is one relationship entry as the caller sees it; Status is
// pending_out, pending_in or accepted.
type Friend struct {
	ID             uint64  `json:"id"`
	Nickname       string  `json:"nickname"`
	AvatarURL      string  `json:"avatar_url"`
	Status         string  `json:"status"`
	TodayCheckedIn bool    `json:"today_checked_in"`
	StreakDays     int     `json:"streak_days"`
	Message        *string `json:"message"`
}

// Permission is the owner-granted pair controlling what the other side may
// see and do.
type Permission struct {
	CanViewDetail bool `json:"can_view_detail"`
	CanRemind     bool `json:"can_remind"`
}

// FriendDetail extends Friend with fields that appear only when the friend
// granted can_view_detail.
type FriendDetail struct {
	ID             uint64     `json:"id"`
	Phone          *string    `json:"phone"`
	Nickname       string     `json:"nickname"`
	AvatarURL      string     `json:"avatar_url"`
	Status         string     `json:"status"`
	TodayCheckedIn bool       `json:"today_checked_in"`
	StreakDays     int        `json:"streak_days"`
	LastCheckinAt  *time.Time `json:"last_checkin_at"`
	Permission     Permission `json:"permission"`
}

// RemindResult reports whether the nudge went out or hit the daily limit.
type RemindResult struct {
	Sent    bool `json:"sent"`
	Limited bool `json:"limited"`
}

// RequestFriend sends a friend request by phone number.
func (c *Client) RequestFriend(ctx context.Context, rawPhone string, message *string) (*Friend, error) {
	p := phone.Normalize(rawPhone)
	if !phone.IsValid(p) {
		return nil, validationError("手机号格式不正确")
	}
	var out Friend
	if err := c.post(ctx, "/friends/request", map[string]interface{}{
		"phone": p, "message": message,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptFriend confirms an incoming request.
func (c *Client) AcceptFriend(ctx context.Context, friendID uint64) (*Friend, error) {
	var out Friend
	if err := c.post(ctx, "/friends/accept", map[string]uint64{"friend_id": friendID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Friends lists every visible relationship.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	var out []Friend
	if err := c.get(ctx, "/friends", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FriendDetail fetches one friend; withheld fields come back nil.
func (c *Client) FriendDetail(ctx context.Context, friendID uint64) (*FriendDetail, error) {
	var out FriendDetail
	if err := c.get(ctx, fmt.Sprintf("/friends/%d", friendID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FriendPermission reads the caller's grant toward the friend.
func (c *Client) FriendPermission(ctx context.Context, friendID uint64) (*Permission, error) {
	var out Permission
	if err := c.get(ctx, fmt.Sprintf("/friends/%d/permission", friendID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFriendPermission writes the caller's grant toward the friend.
func (c *Client) UpdateFriendPermission(ctx context.Context, friendID uint64, p Permission) (*Permission, error) {
	var out Permission
	if err := c.post(ctx, fmt.Sprintf("/friends/%d/permission", friendID), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemindFriend nudges a friend; a limited result is a normal outcome, not an
// error.
func (c *Client) RemindFriend(ctx context.Context, friendID uint64) (*RemindResult, error) {
	var out RemindResult
	if err := c.post(ctx, fmt.Sprintf("/friends/%d/remind", friendID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EncourageFriend sends a cheer with an emoji and optional message.
func (c *Client) EncourageFriend(ctx context.Context, friendID uint64, emoji string, message *string) error {
	if emoji == "" {
		return validationError("请选择一个表情")
	}
	return c.post(ctx, fmt.Sprintf("/friends/%d/encourage", friendID), map[string]interface{}{
		"emoji": emoji, "message": message,
	}, nil)
}
