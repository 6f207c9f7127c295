package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/queue"
	"github.com/sileme/sileme/internal/repository"
	queuepub "github.com/sileme/sileme/internal/service"
	"github.com/sileme/sileme/internal/utils"
)

const defaultAnnouncement = "欢迎加入群组！"

// GroupHandler serves group discovery, membership, the approval flow and the
// encouragement wall.
type GroupHandler struct {
	Users    *repository.UserRepo
	Checkins *repository.CheckinRepo
	Groups   *repository.GroupRepo
	Notifs   *repository.NotificationRepo
}

func NewGroupHandler(u *repository.UserRepo, ch *repository.CheckinRepo, g *repository.GroupRepo, n *repository.NotificationRepo) *GroupHandler {
	return &GroupHandler{Users: u, Checkins: ch, Groups: g, Notifs: n}
}

// ----- DTOs -----

type groupCreateReq struct {
	Name             string  `json:"name"`
	Privacy          string  `json:"privacy"`
	RequiresApproval bool    `json:"requires_approval"`
	Announcement     *string `json:"announcement"`
}

type groupJoinReq struct {
	CodeOrID string `json:"code_or_id"`
}

type groupSummaryResp struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Privacy      string `json:"privacy"`
	MembersCount int    `json:"members_count"`
	ActiveToday  int    `json:"active_today"`
	UnreadCount  int    `json:"unread_count"`
	Status       string `json:"status"`
}

type groupMemberResp struct {
	ID             uint64 `json:"id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	Role           string `json:"role"`
	TodayCheckedIn bool   `json:"today_checked_in"`
}

type groupDetailResp struct {
	ID           uint64            `json:"id"`
	Name         string            `json:"name"`
	Privacy      string            `json:"privacy"`
	Announcement *string           `json:"announcement"`
	JoinCode     *string           `json:"join_code"`
	MembersCount int               `json:"members_count"`
	ActiveToday  int               `json:"active_today"`
	Status       string            `json:"status"`
	Role         *string           `json:"role"`
	Members      []groupMemberResp `json:"members"`
}

type groupEncourageResp struct {
	ID        uint64    `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func memberStatusLabel(m model.GroupMember, err error) string {
	if err != nil {
		return "none"
	}
	if m.Status == model.MemberStatusPending {
		return "pending"
	}
	return "member"
}

// List returns every group with aggregate counts and the caller's own
// relation to each.
func (h *GroupHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	me := currentUserID(c)
	groups, err := h.Groups.ListAll(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}

	out := make([]groupSummaryResp, 0, len(groups))
	for _, g := range groups {
		members, err := h.Groups.AcceptedMembers(ctx, g.ID)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Query failed")
		}
		ids := make([]uint64, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		active, err := h.Checkins.CountOnDay(ctx, ids, utils.LocalDay("UTC"))
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Query failed")
		}
		m, merr := h.Groups.GetMember(ctx, g.ID, me)
		out = append(out, groupSummaryResp{
			ID:           g.ID,
			Name:         g.Name,
			Privacy:      g.Privacy,
			MembersCount: len(members),
			ActiveToday:  active,
			UnreadCount:  0,
			Status:       memberStatusLabel(m, merr),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// detail builds the full group view for one caller. Private groups hide the
// announcement, member list and invite code from non-members rather than
// erroring.
func (h *GroupHandler) detail(ctx context.Context, g model.Group, viewerID uint64) (groupDetailResp, error) {
	members, err := h.Groups.AcceptedMembers(ctx, g.ID)
	if err != nil {
		return groupDetailResp{}, err
	}
	m, merr := h.Groups.GetMember(ctx, g.ID, viewerID)
	isMember := merr == nil && m.Status == model.MemberStatusAccepted

	resp := groupDetailResp{
		ID:           g.ID,
		Name:         g.Name,
		Privacy:      g.Privacy,
		MembersCount: len(members),
		Status:       memberStatusLabel(m, merr),
		Members:      []groupMemberResp{},
	}
	if merr == nil && m.Status == model.MemberStatusAccepted {
		role := m.Role
		resp.Role = &role
	}
	if g.Privacy == model.GroupPrivacyPrivate && !isMember {
		return resp, nil
	}

	resp.Announcement = g.Announcement
	if isMember && g.Privacy == model.GroupPrivacyPrivate {
		code := g.JoinCode
		resp.JoinCode = &code
	}

	ids := make([]uint64, 0, len(members))
	for _, mm := range members {
		ids = append(ids, mm.UserID)
	}
	active, err := h.Checkins.CountOnDay(ctx, ids, utils.LocalDay("UTC"))
	if err != nil {
		return groupDetailResp{}, err
	}
	resp.ActiveToday = active

	for _, mm := range members {
		u, err := h.Users.GetByID(ctx, mm.UserID)
		if err != nil {
			continue
		}
		checked, err := h.Checkins.ExistsOn(ctx, u.ID, utils.LocalDay(u.Timezone))
		if err != nil {
			return groupDetailResp{}, err
		}
		resp.Members = append(resp.Members, groupMemberResp{
			ID:             u.ID,
			Nickname:       u.DisplayName(),
			AvatarURL:      u.AvatarURL,
			Role:           mm.Role,
			TodayCheckedIn: checked,
		})
	}
	return resp, nil
}

func (h *GroupHandler) groupFromPath(ctx context.Context, c echo.Context) (model.Group, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return model.Group{}, repository.ErrNotFound
	}
	return h.Groups.GetByID(ctx, id)
}

// Detail returns one group.
func (h *GroupHandler) Detail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	g, err := h.groupFromPath(ctx, c)
	if err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusNotFound, "Group not found")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	resp, err := h.detail(ctx, g, currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Create makes a new group with the caller as owner. Private groups always
// require the invite code, so approval is forced off for them.
func (h *GroupHandler) Create(c echo.Context) error {
	var req groupCreateReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fail(c, http.StatusBadRequest, "name required")
	}
	if req.Privacy != model.GroupPrivacyPublic && req.Privacy != model.GroupPrivacyPrivate {
		return fail(c, http.StatusBadRequest, "privacy must be public or private")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	code, err := h.Groups.GenerateJoinCode(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Create failed")
	}
	announcement := defaultAnnouncement
	if req.Announcement != nil && strings.TrimSpace(*req.Announcement) != "" {
		announcement = *req.Announcement
	}
	requiresApproval := req.RequiresApproval
	if req.Privacy == model.GroupPrivacyPrivate {
		requiresApproval = false
	}

	g, err := h.Groups.Create(ctx, strings.TrimSpace(req.Name), req.Privacy, requiresApproval, code, currentUserID(c), announcement)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Create failed")
	}
	resp, err := h.detail(ctx, g, currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Join resolves the target by invite code first and falls back to a numeric
// group id. The outcome depends on the group: private demands a matching
// code, approval groups leave the caller pending, open groups admit at once.
func (h *GroupHandler) Join(c echo.Context) error {
	var req groupJoinReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.CodeOrID) == "" {
		return fail(c, http.StatusBadRequest, "code_or_id required")
	}
	token := strings.TrimSpace(req.CodeOrID)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Join codes win over ids: "0042" is a code even though it parses.
	g, err := h.Groups.GetByJoinCode(ctx, token)
	byCode := err == nil
	if !byCode {
		id, perr := strconv.ParseUint(token, 10, 64)
		if perr != nil || id == 0 {
			return fail(c, http.StatusNotFound, "Group not found")
		}
		g, err = h.Groups.GetByID(ctx, id)
	}
	if err != nil || g.ID == 0 {
		return fail(c, http.StatusNotFound, "Group not found")
	}
	if g.Privacy == model.GroupPrivacyPrivate && !byCode {
		return fail(c, http.StatusForbidden, "Invite code required")
	}

	me := currentUserID(c)
	existing, merr := h.Groups.GetMember(ctx, g.ID, me)
	if merr == nil && existing.Status == model.MemberStatusAccepted {
		resp, err := h.detail(ctx, g, me)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Query failed")
		}
		return c.JSON(http.StatusOK, resp)
	}

	// Private groups admit directly with the code; only public groups that
	// ask for approval leave the caller pending.
	needsApproval := g.RequiresApproval && g.Privacy != model.GroupPrivacyPrivate

	if needsApproval {
		if merr == nil && existing.Status == model.MemberStatusPending {
			if time.Since(existing.RequestedAt) < repository.ApplyCooldown {
				return fail(c, http.StatusTooManyRequests, "Apply cooldown")
			}
			if err := h.Groups.TouchRequestedAt(ctx, existing.ID); err != nil {
				return fail(c, http.StatusInternalServerError, "Save failed")
			}
		} else if merr == nil {
			if err := h.Groups.ReopenMember(ctx, existing.ID, model.MemberStatusPending, false); err != nil {
				return fail(c, http.StatusInternalServerError, "Save failed")
			}
		} else {
			if err := h.Groups.CreateMember(ctx, g.ID, me, model.MemberStatusPending, false); err != nil {
				return fail(c, http.StatusInternalServerError, "Save failed")
			}
		}
		if err := h.notifyAdmins(ctx, g, me, model.NotifGroupJoinRequest, " 申请加入 "); err != nil {
			return fail(c, http.StatusInternalServerError, "Save failed")
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "pending", "group_id": g.ID})
	}

	if merr == nil {
		if err := h.Groups.ReopenMember(ctx, existing.ID, model.MemberStatusAccepted, true); err != nil {
			return fail(c, http.StatusInternalServerError, "Save failed")
		}
	} else {
		if err := h.Groups.CreateMember(ctx, g.ID, me, model.MemberStatusAccepted, true); err != nil {
			return fail(c, http.StatusInternalServerError, "Save failed")
		}
	}
	if err := h.notifyAdmins(ctx, g, me, model.NotifGroupJoined, " 已加入 "); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	resp, err := h.detail(ctx, g, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// notifyAdmins pushes a membership event to the group's owner and admins,
// never to the actor themselves.
func (h *GroupHandler) notifyAdmins(ctx context.Context, g model.Group, actorID uint64, kind, verb string) error {
	actor, err := h.Users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	admins, err := h.Groups.AdminIDs(ctx, g.ID)
	if err != nil {
		return err
	}
	targets := make([]uint64, 0, len(admins))
	for _, id := range admins {
		if id != actorID {
			targets = append(targets, id)
		}
	}
	from := actorID
	gid := g.ID
	rel := actorID
	return h.Notifs.CreateBatch(ctx, targets, model.Notification{
		FromUserID:     &from,
		RelatedGroupID: &gid,
		RelatedUserID:  &rel,
		Kind:           kind,
		Message:        actor.DisplayName() + verb + g.Name,
	})
}

// requireAdmin loads the group and verifies the caller is its owner or an
// admin.
func (h *GroupHandler) requireAdmin(ctx context.Context, c echo.Context) (model.Group, error) {
	g, err := h.groupFromPath(ctx, c)
	if err != nil {
		return model.Group{}, repository.ErrNotFound
	}
	m, err := h.Groups.GetMember(ctx, g.ID, currentUserID(c))
	if err != nil || m.Status != model.MemberStatusAccepted ||
		(m.Role != model.GroupRoleOwner && m.Role != model.GroupRoleAdmin) {
		return model.Group{}, repository.ErrForbidden
	}
	return g, nil
}

func (h *GroupHandler) adminGate(c echo.Context, ctx context.Context) (model.Group, bool) {
	g, err := h.requireAdmin(ctx, c)
	if err == repository.ErrNotFound {
		_ = fail(c, http.StatusNotFound, "Group not found")
		return model.Group{}, false
	}
	if err != nil {
		_ = fail(c, http.StatusForbidden, "Not allowed")
		return model.Group{}, false
	}
	return g, true
}

type groupNameReq struct {
	Name string `json:"name"`
}
type groupAnnouncementReq struct {
	Announcement string `json:"announcement"`
}

// UpdateName renames the group. Owner and admins only.
func (h *GroupHandler) UpdateName(c echo.Context) error {
	var req groupNameReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fail(c, http.StatusBadRequest, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, ok := h.adminGate(c, ctx)
	if !ok {
		return nil
	}
	if err := h.Groups.UpdateName(ctx, g.ID, strings.TrimSpace(req.Name)); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": g.ID, "name": strings.TrimSpace(req.Name)})
}

// UpdateAnnouncement replaces the group announcement. Owner and admins only.
func (h *GroupHandler) UpdateAnnouncement(c echo.Context) error {
	var req groupAnnouncementReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, ok := h.adminGate(c, ctx)
	if !ok {
		return nil
	}
	if err := h.Groups.UpdateAnnouncement(ctx, g.ID, req.Announcement); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": g.ID, "announcement": req.Announcement})
}

// RotateInviteCode replaces a private group's invite code. The swap happens
// in a single UPDATE, so the old code stops working the moment the new one
// exists.
func (h *GroupHandler) RotateInviteCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, ok := h.adminGate(c, ctx)
	if !ok {
		return nil
	}
	if g.Privacy != model.GroupPrivacyPrivate {
		return fail(c, http.StatusBadRequest, "Not a private group")
	}
	code, err := h.Groups.GenerateJoinCode(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	if err := h.Groups.UpdateJoinCode(ctx, g.ID, code); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": g.ID, "join_code": code})
}

// Approve accepts a pending join request. The membership flip, the rewrite
// of the admin's join-request notice and the applicant's notification land
// in one transaction.
func (h *GroupHandler) Approve(c echo.Context) error {
	return h.resolve(c, true)
}

// Reject declines a pending join request.
func (h *GroupHandler) Reject(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *GroupHandler) resolve(c echo.Context, approve bool) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		return fail(c, http.StatusNotFound, "Request not found")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, ok := h.adminGate(c, ctx)
	if !ok {
		return nil
	}

	if approve {
		err = h.Groups.ApproveMember(ctx, g.ID, userID, currentUserID(c),
			"已通过该入群申请", "你已加入群组 "+g.Name)
	} else {
		err = h.Groups.RejectMember(ctx, g.ID, userID, currentUserID(c),
			"已拒绝该入群申请", "入群申请已被拒绝（"+g.Name+"）")
	}
	if err == repository.ErrNotFound {
		return fail(c, http.StatusNotFound, "Request not found")
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	status := "rejected"
	if approve {
		status = "approved"
	}
	return c.JSON(http.StatusOK, echo.Map{"group_id": g.ID, "user_id": userID, "status": status})
}

// requireMember loads the group and verifies the caller is an accepted
// member, returning the full member list for fan-out.
func (h *GroupHandler) requireMember(ctx context.Context, c echo.Context) (model.Group, []model.GroupMember, error) {
	g, err := h.groupFromPath(ctx, c)
	if err != nil {
		return model.Group{}, nil, repository.ErrNotFound
	}
	m, err := h.Groups.GetMember(ctx, g.ID, currentUserID(c))
	if err != nil || m.Status != model.MemberStatusAccepted {
		return model.Group{}, nil, repository.ErrForbidden
	}
	members, err := h.Groups.AcceptedMembers(ctx, g.ID)
	if err != nil {
		return model.Group{}, nil, err
	}
	return g, members, nil
}

func (h *GroupHandler) memberGate(c echo.Context, ctx context.Context) (model.Group, []model.GroupMember, bool) {
	g, members, err := h.requireMember(ctx, c)
	if err == repository.ErrNotFound {
		_ = fail(c, http.StatusNotFound, "Group not found")
		return model.Group{}, nil, false
	}
	if err != nil {
		_ = fail(c, http.StatusForbidden, "Not allowed")
		return model.Group{}, nil, false
	}
	return g, members, true
}

func (h *GroupHandler) publishActivity(g model.Group, actor model.User, action, emoji string, memberCount int) {
	event := queue.GroupActivityEvent{
		GroupID:     g.ID,
		GroupName:   g.Name,
		ActorID:     actor.ID,
		ActorName:   actor.DisplayName(),
		Action:      action,
		Emoji:       emoji,
		MemberCount: memberCount,
		OccurredAt:  time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queuepub.PublishGroupActivity(ctx, event)
	}()
}

// Remind nudges every other member of the group to check in.
func (h *GroupHandler) Remind(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	g, members, ok := h.memberGate(c, ctx)
	if !ok {
		return nil
	}
	me := currentUserID(c)
	actor, err := h.Users.GetByID(ctx, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}

	if err := h.Groups.CreateReminderLog(ctx, g.ID, me); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	targets := make([]uint64, 0, len(members))
	for _, m := range members {
		if m.UserID != me {
			targets = append(targets, m.UserID)
		}
	}
	from := me
	gid := g.ID
	if err := h.Notifs.CreateBatch(ctx, targets, model.Notification{
		FromUserID:     &from,
		RelatedGroupID: &gid,
		Kind:           model.NotifRemind,
		Message:        "提醒你打卡啦",
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}

	h.publishActivity(g, actor, "remind", "", len(members))
	return c.JSON(http.StatusOK, echo.Map{"sent": len(targets)})
}

// Encourage posts to the group wall and notifies every other member.
func (h *GroupHandler) Encourage(c echo.Context) error {
	var req encourageReq
	if err := c.Bind(&req); err != nil || req.Emoji == "" {
		return fail(c, http.StatusBadRequest, "emoji required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	g, members, ok := h.memberGate(c, ctx)
	if !ok {
		return nil
	}
	me := currentUserID(c)
	actor, err := h.Users.GetByID(ctx, me)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}

	if err := h.Groups.CreateEncouragement(ctx, g.ID, me, req.Emoji, req.Message); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	targets := make([]uint64, 0, len(members))
	for _, m := range members {
		if m.UserID != me {
			targets = append(targets, m.UserID)
		}
	}
	from := me
	gid := g.ID
	if err := h.Notifs.CreateBatch(ctx, targets, model.Notification{
		FromUserID:     &from,
		RelatedGroupID: &gid,
		Kind:           model.NotifEncourage,
		Message:        "给你加油 " + req.Emoji,
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}

	h.publishActivity(g, actor, "encourage", req.Emoji, len(members))
	return c.JSON(http.StatusOK, echo.Map{"sent": len(targets)})
}

// Encouragements returns the group wall, newest first. Members only.
func (h *GroupHandler) Encouragements(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	g, _, ok := h.memberGate(c, ctx)
	if !ok {
		return nil
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 200 {
			limit = n
		}
	}
	items, err := h.Groups.Encouragements(ctx, g.ID, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	out := make([]groupEncourageResp, 0, len(items))
	for _, e := range items {
		author := "未知用户"
		if u, err := h.Users.GetByID(ctx, e.UserID); err == nil {
			author = u.DisplayName()
		}
		msg := e.Emoji
		if e.Message != nil && strings.TrimSpace(*e.Message) != "" {
			msg = strings.TrimSpace(e.Emoji + " " + *e.Message)
		}
		out = append(out, groupEncourageResp{
			ID: e.ID, Author: author, Message: msg, CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
