package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairWith(refresh string) TokenPair {
	return TokenPair{
		AccessToken:     "access-" + refresh,
		RefreshToken:    refresh,
		TokenType:       "bearer",
		AccessExpiresIn: 900,
		RefreshTokenID:  1,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRefreshSingleFlight(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		atomic.AddInt64(&calls, 1)
		time.Sleep(100 * time.Millisecond) // keep the flight open for late joiners
		writeJSON(w, http.StatusOK, pairWith("r2"))
	}))
	defer srv.Close()

	store := NewMemTokenStore()
	require.NoError(t, store.Save(pairWith("r1")))
	s := NewSession(srv.URL, store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestRefreshRotationReplayRejected(t *testing.T) {
	// The server accepts each refresh token exactly once, like rotation does.
	used := map[string]bool{}
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		replayed := used[body.RefreshToken]
		used[body.RefreshToken] = true
		mu.Unlock()

		if replayed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token revoked"})
			return
		}
		writeJSON(w, http.StatusOK, pairWith(body.RefreshToken+"x"))
	}))
	defer srv.Close()

	store := NewMemTokenStore()
	require.NoError(t, store.Save(pairWith("r1")))
	s := NewSession(srv.URL, store)

	require.NoError(t, s.Refresh(context.Background()))
	got, _ := store.Load()
	assert.Equal(t, "r1x", got.RefreshToken)

	// Replay the pre-rotation token.
	require.NoError(t, store.Save(pairWith("r1")))
	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, store.HasRefresh(), "failed refresh must clear the store")
}

func TestRefreshWithoutTokenIsAuthError(t *testing.T) {
	s := NewSession("http://127.0.0.1:0", NewMemTokenStore())
	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestLogoutClearsStoreEvenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	}))
	defer srv.Close()

	store := NewMemTokenStore()
	require.NoError(t, store.Save(pairWith("r1")))
	s := NewSession(srv.URL, store)

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, store.HasRefresh())
}

func TestLoginValidatesBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))
	defer srv.Close()
	s := NewSession(srv.URL, NewMemTokenStore())

	err := s.Login(context.Background(), "12345", "longenough1", "test")
	require.Error(t, err)
	ae := err.(*APIError)
	assert.Equal(t, KindValidation, ae.Kind)

	err = s.Login(context.Background(), "13800138000", "short", "test")
	require.Error(t, err)
	assert.Equal(t, KindValidation, err.(*APIError).Kind)
}

func TestLoginNormalizesPhone(t *testing.T) {
	var seenPhone string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		seenPhone = body["phone"]
		writeJSON(w, http.StatusOK, pairWith("r1"))
	}))
	defer srv.Close()

	store := NewMemTokenStore()
	s := NewSession(srv.URL, store)
	require.NoError(t, s.Login(context.Background(), "+86 138 0013 8000", "longenough1", "laptop"))

	assert.Equal(t, "13800138000", seenPhone)
	assert.True(t, store.HasRefresh())
}
