package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *MemTokenStore, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	store := NewMemTokenStore()
	require.NoError(t, store.Save(pairWith("r1")))
	c := New(srv.URL, NewSession(srv.URL, store))
	return c, store, srv.Close
}

func TestDoRefreshesOnceOn401(t *testing.T) {
	var refreshes int64
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshes, 1)
		writeJSON(w, http.StatusOK, pairWith("r2"))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-r2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: 7, Nickname: "n", AlarmHours: 24})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshes))
}

func TestDoTerminalWhenRefreshFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token revoked"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
	})

	c, store, done := newTestClient(t, mux)
	defer done()

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, store.HasRefresh())
}

func TestTodayNotFoundIsNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/checkins/today", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No check-in for today"})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	rec, err := c.Today(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRemindLimitedPassthrough(t *testing.T) {
	var calls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/friends/3/remind", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			writeJSON(w, http.StatusOK, RemindResult{Sent: true, Limited: false})
			return
		}
		writeJSON(w, http.StatusOK, RemindResult{Sent: false, Limited: true})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	first, err := c.RemindFriend(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, first.Sent)
	assert.False(t, first.Limited)

	second, err := c.RemindFriend(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, second.Sent)
	assert.True(t, second.Limited)
}

func TestJoinCooldownMapsToRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/join", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "Apply cooldown"})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	_, err := c.JoinGroup(context.Background(), "0042")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, "申请太频繁，请 24 小时后再试", err.Error())
}

func TestUnknownDetailFallsBackToGenericMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "weird internal thing"})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	_, err := c.Groups(context.Background())
	require.Error(t, err)
	assert.Equal(t, genericFailure, err.Error())
}

func TestValidationDetailList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/friends/request", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"Already friends"}]}`))
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	_, err := c.RequestFriend(context.Background(), "13800138000", nil)
	require.Error(t, err)
	ae := err.(*APIError)
	assert.Equal(t, KindConflict, ae.Kind)
	assert.Equal(t, "你们已经是好友啦", ae.Message)
}

func TestMarkAllReadIdempotent(t *testing.T) {
	stamped := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var calls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		count := int64(0)
		if atomic.AddInt64(&calls, 1) == 1 {
			count = 3
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": count, "read_at": stamped})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	n, err := c.MarkAllNotificationsRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.MarkAllNotificationsRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPrivateGroupWithholding(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id": 5, "name": "quiet", "privacy": "private",
			"announcement": nil, "join_code": nil,
			"members_count": 4, "active_today": 0,
			"status": "none", "role": nil, "members": []GroupMember{},
		})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	g, err := c.GroupDetail(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, g.Announcement)
	assert.Nil(t, g.JoinCode)
	assert.Empty(t, g.Members)
	assert.Equal(t, 4, g.MembersCount)
}

func TestUpdateByDateLocalWindowCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("stale edit must not reach the server")
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	stale := time.Now().UTC().AddDate(0, 0, -8).Format("2006-01-02")
	_, err := c.UpdateByDate(context.Background(), stale, CheckinInput{})
	require.Error(t, err)
	assert.Equal(t, KindValidation, err.(*APIError).Kind)
}

// The server evaluates the edit window in the user's timezone, which the
// local pre-check cannot know. A date exactly seven UTC days back may still
// be inside the window for someone behind UTC, so it must be sent through.
func TestUpdateByDateBorderlineGoesToServer(t *testing.T) {
	borderline := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")

	mux := http.NewServeMux()
	mux.HandleFunc("/checkins/"+borderline, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Checkin{ID: 1, Date: borderline, Alive: true})
	})

	c, _, done := newTestClient(t, mux)
	defer done()

	rec, err := c.UpdateByDate(context.Background(), borderline, CheckinInput{})
	require.NoError(t, err)
	assert.Equal(t, borderline, rec.Date)
}
