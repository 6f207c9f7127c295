package client

import (
	"context"

	"github.com/sileme/sileme/pkg/phone"
)

// ProfileUpdate carries a partial profile edit; nil fields are untouched.
type ProfileUpdate struct {
	Nickname   *string `json:"nickname,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	Wechat     *string `json:"wechat,omitempty"`
	Email      *string `json:"email,omitempty"`
	AlarmHours *int    `json:"alarm_hours,omitempty"`
	EstateNote *string `json:"estate_note,omitempty"`
	Timezone   *string `json:"timezone,omitempty"`
}

// Contact is one emergency contact.
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// Device is one refresh-token session.
type Device struct {
	ID         uint64  `json:"id"`
	DeviceName string  `json:"device_name"`
	UserAgent  string  `json:"user_agent"`
	IPAddress  string  `json:"ip_address"`
	RevokedAt  *string `json:"revoked_at"`
}

// Me fetches the caller's profile and feeds the settings observers.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/me", &out); err != nil {
		return nil, err
	}
	c.Settings.set(out.AlarmHours)
	return &out, nil
}

// UpdateProfile applies a partial edit. Subscribed settings observers fire
// only after the server confirms the change.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	if upd.AlarmHours != nil && (*upd.AlarmHours < 1 || *upd.AlarmHours > 72) {
		return nil, validationError("提醒间隔需在 1 到 72 小时之间")
	}
	var out User
	if err := c.put(ctx, "/me/profile", upd, &out); err != nil {
		return nil, err
	}
	c.Settings.set(out.AlarmHours)
	return &out, nil
}

// Contacts returns the emergency contact list.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := c.get(ctx, "/me/contacts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutContacts replaces the emergency contact list. The server is the single
// source of truth; no local copy is kept.
func (c *Client) PutContacts(ctx context.Context, contacts []Contact) error {
	for i := range contacts {
		if contacts[i].Name == "" {
			return validationError("联系人姓名不能为空")
		}
		contacts[i].Phone = phone.Normalize(contacts[i].Phone)
	}
	return c.put(ctx, "/me/contacts", contacts, nil)
}

// Devices lists the caller's sessions.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out []Device
	if err := c.get(ctx, "/auth/devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LogoutDevice revokes one session by id.
func (c *Client) LogoutDevice(ctx context.Context, deviceID uint64) error {
	return c.post(ctx, "/auth/logout-device", map[string]uint64{"device_id": deviceID}, nil)
}
