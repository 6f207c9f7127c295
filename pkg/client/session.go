package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sileme/sileme/pkg/phone"
)

// Session owns the credential lifecycle: login, registration, logout and
// token refresh. At most one refresh request is ever in flight; every
// concurrent 401 waits on the same flight and shares its outcome.
type Session struct {
	baseURL string
	http    *http.Client
	store   TokenStore

	mu     sync.Mutex
	flight *refreshFlight
}

type refreshFlight struct {
	done chan struct{}
	err  error
}

func NewSession(baseURL string, store TokenStore) *Session {
	return &Session{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
	}
}

type userOut struct {
	ID         uint64 `json:"id"`
	Phone      string `json:"phone"`
	Timezone   string `json:"timezone"`
	Nickname   string `json:"nickname"`
	AvatarURL  string `json:"avatar_url"`
	Wechat     string `json:"wechat"`
	Email      string `json:"email"`
	AlarmHours int    `json:"alarm_hours"`
	EstateNote string `json:"estate_note"`
}

// User is the account profile as returned by the server.
type User = userOut

// Register creates an account. Phone format and password length are checked
// locally so malformed input never reaches the network.
func (s *Session) Register(ctx context.Context, rawPhone, password, timezone, smsCode string) (*User, error) {
	p := phone.Normalize(rawPhone)
	if !phone.IsValid(p) {
		return nil, validationError("手机号格式不正确")
	}
	if len(password) < 8 {
		return nil, validationError("密码至少需要 8 位")
	}
	var u User
	if err := s.postJSON(ctx, "/auth/register", map[string]string{
		"phone": p, "password": password, "timezone": timezone, "sms_code": smsCode,
	}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and stores the resulting token pair. The same local
// validation as Register applies before any network I/O.
func (s *Session) Login(ctx context.Context, rawPhone, password, deviceName string) error {
	p := phone.Normalize(rawPhone)
	if !phone.IsValid(p) {
		return validationError("手机号格式不正确")
	}
	if len(password) < 8 {
		return validationError("密码至少需要 8 位")
	}
	var pair TokenPair
	if err := s.postJSON(ctx, "/auth/login", map[string]string{
		"phone": p, "password": password, "device_name": deviceName,
	}, &pair); err != nil {
		return err
	}
	return s.store.Save(pair)
}

// RequestSMSCode asks the server to send the verification code.
func (s *Session) RequestSMSCode(ctx context.Context, rawPhone string) error {
	p := phone.Normalize(rawPhone)
	if !phone.IsValid(p) {
		return validationError("手机号格式不正确")
	}
	return s.postJSON(ctx, "/auth/request-code", map[string]string{"phone": p}, nil)
}

// Logout revokes the refresh token server-side on a best-effort basis and
// always clears the local store, even when the network call fails.
func (s *Session) Logout(ctx context.Context) error {
	if pair, ok := s.store.Load(); ok && pair.RefreshToken != "" {
		_ = s.postJSON(ctx, "/auth/logout", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	}
	return s.store.Clear()
}

// AccessToken returns the current bearer token, empty when logged out.
func (s *Session) AccessToken() string {
	pair, ok := s.store.Load()
	if !ok {
		return ""
	}
	return pair.AccessToken
}

// LoggedIn reports whether a refresh token is available.
func (s *Session) LoggedIn() bool { return s.store.HasRefresh() }

// Store exposes the underlying token store.
func (s *Session) Store() TokenStore { return s.store }

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers join the flight already underway instead of dispatching their own
// request; the flight itself runs to completion even if individual waiters
// give up, so late joiners still get a real outcome. A failed refresh clears
// the store exactly once and is terminal: the caller must log in again.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if f := s.flight; f != nil {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := &refreshFlight{done: make(chan struct{})}
	s.flight = f
	s.mu.Unlock()

	// Detached from the caller's context: other waiters may outlive it.
	f.err = s.doRefresh(context.Background())

	s.mu.Lock()
	s.flight = nil
	s.mu.Unlock()
	close(f.done)
	return f.err
}

func (s *Session) doRefresh(ctx context.Context) error {
	pair, ok := s.store.Load()
	if !ok || pair.RefreshToken == "" {
		return &APIError{Kind: KindAuth, Message: "登录已失效，请重新登录"}
	}
	var next TokenPair
	err := s.postJSON(ctx, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, &next)
	if err != nil {
		if ae, ok := err.(*APIError); ok && ae.Kind == KindAuth {
			_ = s.store.Clear()
		}
		return err
	}
	return s.store.Save(next)
}

// postJSON is the session's own transport for auth endpoints; these never
// carry a bearer token and never trigger a refresh.
func (s *Session) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return transientError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transientError(err)
	}
	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
