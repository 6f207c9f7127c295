package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GroupSummary is one row of the group list.
type GroupSummary struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Privacy      string `json:"privacy"`
	MembersCount int    `json:"members_count"`
	ActiveToday  int    `json:"active_today"`
	UnreadCount  int    `json:"unread_count"`
	Status       string `json:"status"`
}

// GroupMember is one accepted member in a group detail.
type GroupMember struct {
	ID             uint64 `json:"id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	Role           string `json:"role"`
	TodayCheckedIn bool   `json:"today_checked_in"`
}

// GroupDetail is the full group view. For private groups viewed by a
// non-member, Announcement is nil and Members is empty.
type GroupDetail struct {
	ID           uint64        `json:"id"`
	Name         string        `json:"name"`
	Privacy      string        `json:"privacy"`
	Announcement *string       `json:"announcement"`
	JoinCode     *string       `json:"join_code"`
	MembersCount int           `json:"members_count"`
	ActiveToday  int           `json:"active_today"`
	Status       string        `json:"status"`
	Role         *string       `json:"role"`
	Members      []GroupMember `json:"members"`
}

// GroupEncouragement is one entry of the group wall.
type GroupEncouragement struct {
	ID        uint64    `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Groups lists every group with the caller's relation to each.
func (c *Client) Groups(ctx context.Context) ([]GroupSummary, error) {
	var out []GroupSummary
	if err := c.get(ctx, "/groups", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup makes a new group with the caller as owner.
func (c *Client) CreateGroup(ctx context.Context, name, privacy string, requiresApproval bool) (*GroupDetail, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError("请输入群组名称")
	}
	var out GroupDetail
	if err := c.post(ctx, "/groups", map[string]interface{}{
		"name": name, "privacy": privacy, "requires_approval": requiresApproval,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinGroup joins by invite code or numeric group id. Depending on the group
// the caller either becomes a member right away (detail returned) or lands
// in the pending queue (nil detail).
func (c *Client) JoinGroup(ctx context.Context, codeOrID string) (*GroupDetail, error) {
	if strings.TrimSpace(codeOrID) == "" {
		return nil, validationError("请输入群号或邀请码")
	}
	var out GroupDetail
	if err := c.post(ctx, "/groups/join", map[string]string{"code_or_id": codeOrID}, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		// Pending application; no detail to show yet.
		return nil, nil
	}
	return &out, nil
}

// GroupDetail fetches one group.
func (c *Client) GroupDetail(ctx context.Context, groupID uint64) (*GroupDetail, error) {
	var out GroupDetail
	if err := c.get(ctx, fmt.Sprintf("/groups/%d", groupID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameGroup changes the group name. Admin or owner only.
func (c *Client) RenameGroup(ctx context.Context, groupID uint64, name string) error {
	if strings.TrimSpace(name) == "" {
		return validationError("请输入群组名称")
	}
	return c.post(ctx, fmt.Sprintf("/groups/%d/name", groupID), map[string]string{"name": name}, nil)
}

// UpdateGroupAnnouncement replaces the announcement. Admin or owner only.
func (c *Client) UpdateGroupAnnouncement(ctx context.Context, groupID uint64, announcement string) error {
	return c.post(ctx, fmt.Sprintf("/groups/%d/announcement", groupID),
		map[string]string{"announcement": announcement}, nil)
}

// RotateInviteCode replaces a private group's invite code and returns the
// new one.
func (c *Client) RotateInviteCode(ctx context.Context, groupID uint64) (string, error) {
	var out struct {
		JoinCode string `json:"join_code"`
	}
	if err := c.post(ctx, fmt.Sprintf("/groups/%d/invite-code", groupID), nil, &out); err != nil {
		return "", err
	}
	return out.JoinCode, nil
}

// ApproveJoin accepts a pending join request. Admin or owner only.
func (c *Client) ApproveJoin(ctx context.Context, groupID, userID uint64) error {
	return c.post(ctx, "/groups/"+strconv.FormatUint(groupID, 10)+
		"/members/"+strconv.FormatUint(userID, 10)+"/approve", nil, nil)
}

// RejectJoin declines a pending join request. Admin or owner only.
func (c *Client) RejectJoin(ctx context.Context, groupID, userID uint64) error {
	return c.post(ctx, "/groups/"+strconv.FormatUint(groupID, 10)+
		"/members/"+strconv.FormatUint(userID, 10)+"/reject", nil, nil)
}

// RemindGroup nudges every other member. Member only.
func (c *Client) RemindGroup(ctx context.Context, groupID uint64) error {
	return c.post(ctx, fmt.Sprintf("/groups/%d/remind", groupID), nil, nil)
}

// EncourageGroup posts to the group wall and notifies the other members.
func (c *Client) EncourageGroup(ctx context.Context, groupID uint64, emoji string, message *string) error {
	if emoji == "" {
		return validationError("请选择一个表情")
	}
	return c.post(ctx, fmt.Sprintf("/groups/%d/encourage", groupID), map[string]interface{}{
		"emoji": emoji, "message": message,
	}, nil)
}

// GroupEncouragements returns the group wall, newest first. Member only.
func (c *Client) GroupEncouragements(ctx context.Context, groupID uint64, limit int) ([]GroupEncouragement, error) {
	path := fmt.Sprintf("/groups/%d/encouragements", groupID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out []GroupEncouragement
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
