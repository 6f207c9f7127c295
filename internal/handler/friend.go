package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
	"github.com/sileme/sileme/internal/utils"
	"github.com/sileme/sileme/pkg/phone"
)

// FriendHandler serves the friend graph: requests, accepts, permissions and
// the reminder/encouragement actions.
type FriendHandler struct {
	Users    *repository.UserRepo
	Checkins *repository.CheckinRepo
	Friends  *repository.FriendRepo
	Notifs   *repository.NotificationRepo
}

func NewFriendHandler(u *repository.UserRepo, ch *repository.CheckinRepo, f *repository.FriendRepo, n *repository.NotificationRepo) *FriendHandler {
	return &FriendHandler{Users: u, Checkins: ch, Friends: f, Notifs: n}
}

// ----- DTOs -----

type friendRequestReq struct {
	Phone   string  `json:"phone"`
	Message *string `json:"message"`
}
type friendAcceptReq struct {
	FriendID uint64 `json:"friend_id"`
}
type permissionReq struct {
	CanViewDetail bool `json:"can_view_detail"`
	CanRemind     bool `json:"can_remind"`
}
type permissionResp struct {
	CanViewDetail bool `json:"can_view_detail"`
	CanRemind     bool `json:"can_remind"`
}

type friendResp struct {
	ID             uint64  `json:"id"`
	Nickname       string  `json:"nickname"`
	AvatarURL      string  `json:"avatar_url"`
	Status         string  `json:"status"`
	TodayCheckedIn bool    `json:"today_checked_in"`
	StreakDays     int     `json:"streak_days"`
	Message        *string `json:"message"`
}

type friendDetailResp struct {
	ID             uint64         `json:"id"`
	Phone          *string        `json:"phone"`
	Nickname       string         `json:"nickname"`
	AvatarURL      string         `json:"avatar_url"`
	Status         string         `json:"status"`
	TodayCheckedIn bool           `json:"today_checked_in"`
	StreakDays     int            `json:"streak_days"`
	LastCheckinAt  *time.Time     `json:"last_checkin_at"`
	Permission     permissionResp `json:"permission"`
}

type remindResp struct {
	Sent    bool `json:"sent"`
	Limited bool `json:"limited"`
}

// statusLabel converts the stored row into the caller's view: a pending row
// is pending_out for the requester and pending_in for the recipient.
func statusLabel(f model.Friendship, viewerID uint64) string {
	if f.Status == model.FriendStatusPending {
		if f.UserID == viewerID {
			return "pending_out"
		}
		return "pending_in"
	}
	return f.Status
}

// streak counts the friend's consecutive checked-in days in their own
// timezone, capped at the stats window.
func (h *FriendHandler) streak(ctx context.Context, friend model.User) (int, error) {
	today := utils.LocalDay(friend.Timezone)
	start := today.AddDate(0, 0, -(statsWindowDays - 1))
	recs, err := h.Checkins.Range(ctx, friend.ID, start, today)
	if err != nil {
		return 0, err
	}
	return streakDays(recs, today), nil
}

func (h *FriendHandler) toFriendResp(ctx context.Context, viewerID uint64, f model.Friendship, friend model.User) (friendResp, error) {
	checked, err := h.Checkins.ExistsOn(ctx, friend.ID, utils.LocalDay(friend.Timezone))
	if err != nil {
		return friendResp{}, err
	}
	streak, err := h.streak(ctx, friend)
	if err != nil {
		return friendResp{}, err
	}
	return friendResp{
		ID:             friend.ID,
		Nickname:       friend.Nickname,
		AvatarURL:      friend.AvatarURL,
		Status:         statusLabel(f, viewerID),
		TodayCheckedIn: checked,
		StreakDays:     streak,
		Message:        f.Message,
	}, nil
}

// Request sends (or re-sends) a friend request by phone. An incoming
// pending request from the target is auto-accepted instead of creating a
// duplicate row.
func (h *FriendHandler) Request(c echo.Context) error {
	var req friendRequestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	target, err := h.Users.GetByPhone(ctx, phone.Normalize(req.Phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if target.ID == me {
		return fail(c, http.StatusBadRequest, "Cannot add yourself")
	}

	existing, err := h.Friends.FindBetween(ctx, me, target.ID)
	if err != nil && err != repository.ErrNotFound {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if err == nil {
		switch {
		case existing.Status == model.FriendStatusAccepted:
			return fail(c, http.StatusBadRequest, "Already friends")
		case existing.Status == model.FriendStatusBlocked:
			return fail(c, http.StatusForbidden, "Blocked")
		case existing.Status == model.FriendStatusPending && existing.UserID == target.ID:
			// They already asked us; requesting back means both sides agree.
			if err := h.Friends.Accept(ctx, existing.ID); err != nil {
				return fail(c, http.StatusInternalServerError, "Update failed")
			}
			if err := h.ensureSettings(ctx, me, target.ID); err != nil {
				return fail(c, http.StatusInternalServerError, "Update failed")
			}
			existing.Status = model.FriendStatusAccepted
		case existing.Status == model.FriendStatusPending:
			if req.Message != nil {
				if err := h.Friends.UpdateMessage(ctx, existing.ID, *req.Message); err != nil {
					return fail(c, http.StatusInternalServerError, "Update failed")
				}
				existing.Message = req.Message
			}
		}
		out, err := h.toFriendResp(ctx, me, existing, target)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Query failed")
		}
		return c.JSON(http.StatusOK, out)
	}

	created, err := h.Friends.Create(ctx, me, target.ID, req.Message)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Create failed")
	}
	out, err := h.toFriendResp(ctx, me, created, target)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FriendHandler) ensureSettings(ctx context.Context, a, b uint64) error {
	if err := h.Friends.EnsureSetting(ctx, a, b); err != nil {
		return err
	}
	return h.Friends.EnsureSetting(ctx, b, a)
}

// Accept confirms an incoming pending request. Only the recipient may
// accept; both sides become accepted and default permissions are created.
func (h *FriendHandler) Accept(c echo.Context) error {
	var req friendAcceptReq
	if err := c.Bind(&req); err != nil || req.FriendID == 0 {
		return fail(c, http.StatusBadRequest, "friend_id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	f, err := h.Friends.FindPendingTo(ctx, req.FriendID, me)
	if err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusNotFound, "Request not found")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if err := h.Friends.Accept(ctx, f.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	if err := h.ensureSettings(ctx, me, req.FriendID); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	f.Status = model.FriendStatusAccepted

	friend, err := h.Users.GetByID(ctx, req.FriendID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	out, err := h.toFriendResp(ctx, me, f, friend)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, out)
}

// List returns every visible relationship for the caller; blocked rows are
// hidden entirely.
func (h *FriendHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	friendships, err := h.Friends.ListForUser(ctx, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	out := make([]friendResp, 0, len(friendships))
	for _, f := range friendships {
		if f.Status == model.FriendStatusBlocked {
			continue
		}
		friendID := f.FriendID
		if f.FriendID == me {
			friendID = f.UserID
		}
		friend, err := h.Users.GetByID(ctx, friendID)
		if err != nil {
			continue // orphaned row, skip
		}
		item, err := h.toFriendResp(ctx, me, f, friend)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Query failed")
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, out)
}

// friendFromPath resolves the :id path param to a visible friendship.
func (h *FriendHandler) friendFromPath(ctx context.Context, c echo.Context) (model.Friendship, model.User, error) {
	friendID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || friendID == 0 {
		return model.Friendship{}, model.User{}, repository.ErrNotFound
	}
	f, err := h.Friends.FindBetween(ctx, currentUserID(c), friendID)
	if err != nil || f.Status == model.FriendStatusBlocked {
		return model.Friendship{}, model.User{}, repository.ErrNotFound
	}
	friend, err := h.Users.GetByID(ctx, friendID)
	if err != nil {
		return model.Friendship{}, model.User{}, repository.ErrNotFound
	}
	return f, friend, nil
}

// Detail returns the friend view. Phone and last check-in are withheld —
// not an error — unless the friend granted can_view_detail to the caller.
// The permission block in the response is the caller's own grant toward the
// friend, which is what the settings toggles edit.
func (h *FriendHandler) Detail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	f, friend, err := h.friendFromPath(ctx, c)
	if err != nil {
		return fail(c, http.StatusNotFound, "Friend not found")
	}

	theirGrant, err := h.Friends.GetSetting(ctx, friend.ID, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	myGrant, err := h.Friends.GetSetting(ctx, me, friend.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	base, err := h.toFriendResp(ctx, me, f, friend)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}

	resp := friendDetailResp{
		ID:             friend.ID,
		Nickname:       friend.Nickname,
		AvatarURL:      friend.AvatarURL,
		Status:         base.Status,
		TodayCheckedIn: base.TodayCheckedIn,
		StreakDays:     base.StreakDays,
		Permission:     permissionResp{CanViewDetail: myGrant.CanViewDetail, CanRemind: myGrant.CanRemind},
	}
	if theirGrant.CanViewDetail {
		p := friend.Phone
		resp.Phone = &p
		resp.LastCheckinAt = friend.LastCheckinAt
	}
	return c.JSON(http.StatusOK, resp)
}

// GetPermission returns the caller's grant toward the friend.
func (h *FriendHandler) GetPermission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, friend, err := h.friendFromPath(ctx, c)
	if err != nil {
		return fail(c, http.StatusNotFound, "Friend not found")
	}
	s, err := h.Friends.GetSetting(ctx, currentUserID(c), friend.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, permissionResp{CanViewDetail: s.CanViewDetail, CanRemind: s.CanRemind})
}

// UpdatePermission writes the caller's grant toward the friend. Only the
// permission owner can reach their own row, so no further role check is
// needed.
func (h *FriendHandler) UpdatePermission(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, friend, err := h.friendFromPath(ctx, c)
	if err != nil {
		return fail(c, http.StatusNotFound, "Friend not found")
	}
	if err := h.Friends.UpsertSetting(ctx, currentUserID(c), friend.ID, req.CanViewDetail, req.CanRemind); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, permissionResp{CanViewDetail: req.CanViewDetail, CanRemind: req.CanRemind})
}

// Remind nudges a friend to check in. At most one reminder lands per
// (sender, recipient) per recipient-local calendar day; the second attempt
// reports limited instead of failing.
func (h *FriendHandler) Remind(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	f, friend, err := h.friendFromPath(ctx, c)
	if err != nil || f.Status != model.FriendStatusAccepted {
		return fail(c, http.StatusNotFound, "Friend not found")
	}

	grant, err := h.Friends.GetSetting(ctx, friend.ID, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if !grant.CanRemind {
		return fail(c, http.StatusForbidden, "Reminders disabled")
	}

	day := utils.LocalDay(friend.Timezone)
	sent, err := h.Friends.ReminderSentOn(ctx, me, friend.ID, day)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if sent {
		return c.JSON(http.StatusOK, remindResp{Sent: false, Limited: true})
	}

	if err := h.Friends.CreateReminder(ctx, me, friend.ID, day); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	from := me
	if err := h.Notifs.Create(ctx, model.Notification{
		UserID:     friend.ID,
		FromUserID: &from,
		Kind:       model.NotifRemind,
		Message:    "提醒你打卡啦",
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	return c.JSON(http.StatusOK, remindResp{Sent: true, Limited: false})
}

type encourageReq struct {
	Emoji   string  `json:"emoji"`
	Message *string `json:"message"`
}

// Encourage sends a cheer; no daily limit, but every one is logged.
func (h *FriendHandler) Encourage(c echo.Context) error {
	var req encourageReq
	if err := c.Bind(&req); err != nil || req.Emoji == "" {
		return fail(c, http.StatusBadRequest, "emoji required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me := currentUserID(c)
	f, friend, err := h.friendFromPath(ctx, c)
	if err != nil || f.Status != model.FriendStatusAccepted {
		return fail(c, http.StatusNotFound, "Friend not found")
	}

	day := utils.LocalDay(friend.Timezone)
	if err := h.Friends.CreateEncouragement(ctx, me, friend.ID, day, req.Emoji, req.Message); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	from := me
	if err := h.Notifs.Create(ctx, model.Notification{
		UserID:     friend.ID,
		FromUserID: &from,
		Kind:       model.NotifEncourage,
		Message:    "给你加油 " + req.Emoji,
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"sent": true})
}
