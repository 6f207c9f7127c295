package client

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewFileTokenStore(path)

	_, ok := s.Load()
	assert.False(t, ok)
	assert.False(t, s.HasRefresh())

	require.NoError(t, s.Save(pairWith("r1")))
	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "r1", got.RefreshToken)
	assert.Equal(t, uint64(1), s.CurrentDeviceID())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, s.Clear())
	assert.False(t, s.HasRefresh())
	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestMemTokenStoreLastWriteWins(t *testing.T) {
	s := NewMemTokenStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Save(pairWith("r"))
		}(i)
	}
	wg.Wait()

	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "r", got.RefreshToken)
}

func TestFileTokenStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s := NewFileTokenStore(path)
	_, ok := s.Load()
	assert.False(t, ok)
}
