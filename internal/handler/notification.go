package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	Users  *repository.UserRepo
	Groups *repository.GroupRepo
	Notifs *repository.NotificationRepo
}

func NewNotificationHandler(u *repository.UserRepo, g *repository.GroupRepo, n *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Users: u, Groups: g, Notifs: n}
}

type notificationResp struct {
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

// List returns the inbox, newest first (?limit=, ?unread_only=true). Sender
// identity is resolved at read time so renames show up immediately.
func (h *NotificationHandler) List(c echo.Context) error {
	limit := 30
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			limit = n
		}
	}
	unreadOnly := c.QueryParam("unread_only") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Notifs.List(ctx, currentUserID(c), limit, unreadOnly)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}

	// Senders and groups repeat heavily in an inbox; fetch each one once.
	users := map[uint64]model.User{}
	groupNames := map[uint64]string{}
	out := make([]notificationResp, 0, len(items))
	for _, n := range items {
		item := notificationResp{
			ID:             n.ID,
			Kind:           n.Kind,
			Message:        n.Message,
			FromUserID:     n.FromUserID,
			RelatedGroupID: n.RelatedGroupID,
			RelatedUserID:  n.RelatedUserID,
			CreatedAt:      n.CreatedAt,
			ReadAt:         n.ReadAt,
		}
		if n.FromUserID != nil {
			u, ok := users[*n.FromUserID]
			if !ok {
				if loaded, err := h.Users.GetByID(ctx, *n.FromUserID); err == nil {
					u = loaded
					users[*n.FromUserID] = u
				}
			}
			if u.ID != 0 {
				name := u.DisplayName()
				avatar := u.AvatarURL
				item.FromUserName = &name
				item.FromUserAvatar = &avatar
			}
		}
		if n.RelatedGroupID != nil {
			name, ok := groupNames[*n.RelatedGroupID]
			if !ok {
				if g, err := h.Groups.GetByID(ctx, *n.RelatedGroupID); err == nil {
					name = g.Name
					groupNames[*n.RelatedGroupID] = name
				}
			}
			if name != "" {
				item.RelatedGroupName = &name
			}
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, out)
}

// MarkRead stamps one notification as read. Idempotent: re-marking returns
// the original timestamp.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, http.StatusNotFound, "Notification not found")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	readAt, err := h.Notifs.MarkRead(ctx, id, currentUserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusNotFound, "Notification not found")
		}
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "read_at": readAt})
}

// MarkAllRead stamps every unread notification with one shared instant.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, readAt, err := h.Notifs.MarkAllRead(ctx, currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count, "read_at": readAt})
}
