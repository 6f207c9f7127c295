package client

import (
	"encoding/json"
	"os"
	"sync"
)

// TokenPair is the credential set returned by login and refresh.
// RefreshTokenID identifies the device session server-side and changes on
// every rotation.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresIn  int    `json:"access_expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	RefreshTokenID   uint64 `json:"refresh_token_id"`
}

// TokenStore persists the current token pair. Implementations are safe for
// concurrent use; concurrent saves resolve last-write-wins.
type TokenStore interface {
	Load() (TokenPair, bool)
	Save(TokenPair) error
	Clear() error
	HasRefresh() bool
	CurrentDeviceID() uint64
}

// MemTokenStore keeps the pair in memory. Useful for tests and short-lived
// processes.
type MemTokenStore struct {
	mu   sync.Mutex
	pair TokenPair
	set  bool
}

func NewMemTokenStore() *MemTokenStore { return &MemTokenStore{} }

func (s *MemTokenStore) Load() (TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.set
}

func (s *MemTokenStore) Save(p TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p
	s.set = true
	return nil
}

func (s *MemTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	s.set = false
	return nil
}

func (s *MemTokenStore) HasRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set && s.pair.RefreshToken != ""
}

func (s *MemTokenStore) CurrentDeviceID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair.RefreshTokenID
}

// FileTokenStore persists the pair as a 0600 JSON file so other users on the
// machine cannot read the tokens.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return TokenPair{}, false
	}
	var p TokenPair
	if err := json.Unmarshal(data, &p); err != nil || p.RefreshToken == "" {
		return TokenPair{}, false
	}
	return p, true
}

func (s *FileTokenStore) Save(p TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileTokenStore) HasRefresh() bool {
	_, ok := s.Load()
	return ok
}

func (s *FileTokenStore) CurrentDeviceID() uint64 {
	p, _ := s.Load()
	return p.RefreshTokenID
}
