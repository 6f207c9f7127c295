package client

import "sync"

// Settings holds the current alarm interval and notifies subscribers when a
// profile update changes it. Components that care about alarm_hours
// subscribe here instead of listening on a broadcast channel.
type Settings struct {
	mu         sync.Mutex
	alarmHours int
	subs       []func(int)
}

func NewSettings() *Settings { return &Settings{alarmHours: 24} }

// AlarmHours returns the last confirmed value.
func (s *Settings) AlarmHours() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarmHours
}

// Subscribe registers fn to run on every confirmed change. fn is called
// synchronously with the new value; no call happens when the value did not
// change.
func (s *Settings) Subscribe(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Settings) set(hours int) {
	if hours < 1 {
		return
	}
	s.mu.Lock()
	changed := hours != s.alarmHours
	s.alarmHours = hours
	subs := make([]func(int), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(hours)
	}
}
