package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/config"
	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
	"github.com/sileme/sileme/internal/utils"
	"github.com/sileme/sileme/pkg/phone"
)

// MockSMSCode is the out-of-band verification code accepted at registration.
// Real SMS delivery is out of scope; the request-code endpoint hands this
// value back so the flow is testable end to end.
const MockSMSCode = "123456"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
	SMSCode  string `json:"sms_code"`
}
type loginReq struct {
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type logoutDeviceReq struct {
	DeviceID uint64 `json:"device_id"`
}

// tokenPairResp is the TokenPair wire shape. refresh_token_id identifies the
// device session and changes on every rotation.
type tokenPairResp struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresIn  int    `json:"access_expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	RefreshTokenID   uint64 `json:"refresh_token_id"`
}

type userResp struct {
	ID         uint64    `json:"id"`
	Phone      string    `json:"phone"`
	Timezone   string    `json:"timezone"`
	Nickname   string    `json:"nickname"`
	AvatarURL  string    `json:"avatar_url"`
	Wechat     string    `json:"wechat"`
	Email      string    `json:"email"`
	AlarmHours int       `json:"alarm_hours"`
	EstateNote string    `json:"estate_note"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID: u.ID, Phone: u.Phone, Timezone: u.Timezone, Nickname: u.Nickname,
		AvatarURL: u.AvatarURL, Wechat: u.Wechat, Email: u.Email,
		AlarmHours: u.AlarmHours, EstateNote: u.EstateNote, CreatedAt: u.CreatedAt,
	}
}

func (h *AuthHandler) pair(userID, refreshID uint64, access utils.AccessToken, refresh utils.RefreshToken) tokenPairResp {
	return tokenPairResp{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Raw,
		TokenType:        "bearer",
		AccessExpiresIn:  h.Cfg.AccessTTLMin * 60,
		RefreshExpiresIn: h.Cfg.RefreshTTLDays * 24 * 3600,
		RefreshTokenID:   refreshID,
	}
}

// Register creates the account. It does not authenticate: the client is
// expected to follow with a login call.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	req.Phone = phone.Normalize(req.Phone)
	if !phone.IsValid(req.Phone) {
		return fail(c, http.StatusBadRequest, "Invalid phone number")
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "Password too short")
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil || req.Timezone == "" {
		return fail(c, http.StatusBadRequest, "Invalid timezone")
	}
	if req.SMSCode != MockSMSCode {
		return fail(c, http.StatusBadRequest, "Invalid SMS code")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Phone, req.Password, req.Timezone, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrPhoneExists {
			return fail(c, http.StatusBadRequest, "Phone already registered")
		}
		return fail(c, http.StatusInternalServerError, "Create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login verifies credentials and opens a device session: one refresh token
// row per logged-in device, bound to the device name, user agent and ip seen
// at issuance.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	req.Phone = phone.Normalize(req.Phone)
	if req.Phone == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Phone and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByPhone(ctx, req.Phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Issue refresh failed")
	}
	deviceName := strings.TrimSpace(req.DeviceName)
	if deviceName == "" {
		deviceName = "Unknown device"
	}
	refreshID, err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw),
		deviceName, c.Request().UserAgent(), c.RealIP(), refresh.Exp)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Save refresh failed")
	}

	return c.JSON(http.StatusOK, h.pair(u.ID, refreshID, access, refresh))
}

// Refresh validates by hash, rotates the row and returns a new pair. The old
// refresh_token_id is revoked in the same transaction as the insert, so a
// replay of the old token can never succeed after rotation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stored, err := h.Tokens.FindActiveByHash(ctx, hash)
	if err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusUnauthorized, "Refresh token revoked")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	if time.Now().UTC().After(stored.ExpiresAt) {
		_ = h.Tokens.RevokeByID(ctx, stored.ID, stored.UserID)
		return fail(c, http.StatusUnauthorized, "Refresh token expired")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, stored.UserID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Issue access failed")
	}
	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Issue refresh failed")
	}
	newID, err := h.Tokens.Rotate(ctx, stored.ID, stored.UserID,
		utils.HashRefreshRaw(newRef.Raw), stored.DeviceName,
		c.Request().UserAgent(), c.RealIP(), newRef.Exp)
	if err != nil {
		if err == repository.ErrNotFound {
			// Another caller rotated the same token first.
			return fail(c, http.StatusUnauthorized, "Refresh token revoked")
		}
		return fail(c, http.StatusInternalServerError, "Save refresh failed")
	}

	return c.JSON(http.StatusOK, h.pair(stored.UserID, newID, access, newRef))
}

// Logout revokes the presented refresh token. Unknown or already-revoked
// tokens are not an error: logout always reports ok so clients can clear
// local state unconditionally.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		_ = h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// RequestCode triggers the out-of-band SMS code send. Delivery is mocked;
// the code is echoed back for development convenience.
func (h *AuthHandler) RequestCode(c echo.Context) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	if !phone.IsValid(phone.Normalize(req.Phone)) {
		return fail(c, http.StatusBadRequest, "Invalid phone number")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"message": "Mock code sent",
		"code":    MockSMSCode,
	})
}

type deviceResp struct {
	ID         uint64     `json:"id"`
	DeviceName string     `json:"device_name"`
	UserAgent  string     `json:"user_agent"`
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

// Devices lists the caller's sessions newest-first, deduplicated by
// (device name, user agent, ip) so rotation chains show as one device.
func (h *AuthHandler) Devices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tokens, err := h.Tokens.ListForUser(ctx, currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	type key struct{ name, ua, ip string }
	seen := map[key]bool{}
	out := make([]deviceResp, 0, len(tokens))
	for _, t := range tokens {
		k := key{t.DeviceName, t.UserAgent, t.IPAddress}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, deviceResp{
			ID: t.ID, DeviceName: t.DeviceName, UserAgent: t.UserAgent,
			IPAddress: t.IPAddress, CreatedAt: t.CreatedAt, RevokedAt: t.RevokedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// LogoutDevice revokes one of the caller's device sessions. Other devices
// keep their refresh tokens.
func (h *AuthHandler) LogoutDevice(c echo.Context) error {
	var req logoutDeviceReq
	if err := c.Bind(&req); err != nil || req.DeviceID == 0 {
		return fail(c, http.StatusBadRequest, "device_id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByID(ctx, req.DeviceID, currentUserID(c)); err != nil {
		return fail(c, http.StatusInternalServerError, "Logout failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusUnauthorized, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
