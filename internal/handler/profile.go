package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
	"github.com/sileme/sileme/pkg/phone"
)

// ProfileHandler serves profile and emergency-contact endpoints. Contacts
// live server-side only; every read goes to the database so a successful
// mutation is immediately visible.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: u}
}

type profileUpdateReq struct {
	Nickname   *string `json:"nickname"`
	AvatarURL  *string `json:"avatar_url"`
	Wechat     *string `json:"wechat"`
	Email      *string `json:"email"`
	AlarmHours *int    `json:"alarm_hours"`
	EstateNote *string `json:"estate_note"`
	Timezone   *string `json:"timezone"`
}

// UpdateProfile applies a partial profile update. Absent fields are left
// untouched; alarm_hours outside 1..72 is rejected before any write.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var req profileUpdateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	if req.AlarmHours != nil && (*req.AlarmHours < 1 || *req.AlarmHours > 72) {
		return fail(c, http.StatusBadRequest, "alarm_hours must be between 1 and 72")
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			return fail(c, http.StatusBadRequest, "Invalid timezone")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, currentUserID(c), repository.ProfileUpdate{
		Nickname:   req.Nickname,
		AvatarURL:  req.AvatarURL,
		Wechat:     req.Wechat,
		Email:      req.Email,
		AlarmHours: req.AlarmHours,
		EstateNote: req.EstateNote,
		Timezone:   req.Timezone,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type contactItem struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// GetContacts returns the caller's emergency contacts in stored order.
func (h *ProfileHandler) GetContacts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	contacts, err := h.Users.ListContacts(ctx, currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	out := make([]contactItem, 0, len(contacts))
	for _, ct := range contacts {
		out = append(out, contactItem{Name: ct.Name, Phone: ct.Phone, Relation: ct.Relation})
	}
	return c.JSON(http.StatusOK, out)
}

// PutContacts replaces the full contact list.
func (h *ProfileHandler) PutContacts(c echo.Context) error {
	var req []contactItem
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	contacts := make([]model.Contact, 0, len(req))
	for _, item := range req {
		if item.Name == "" {
			return fail(c, http.StatusBadRequest, "Contact name required")
		}
		contacts = append(contacts, model.Contact{
			Name:     item.Name,
			Phone:    phone.Normalize(item.Phone),
			Relation: item.Relation,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.ReplaceContacts(ctx, currentUserID(c), contacts); err != nil {
		return fail(c, http.StatusInternalServerError, "Update failed")
	}
	return c.JSON(http.StatusOK, req)
}
