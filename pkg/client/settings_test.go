package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsSubscribe(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, 24, s.AlarmHours())

	var got []int
	s.Subscribe(func(h int) { got = append(got, h) })

	s.set(12)
	s.set(12) // unchanged, no callback
	s.set(48)

	assert.Equal(t, []int{12, 48}, got)
	assert.Equal(t, 48, s.AlarmHours())
}

func TestSettingsIgnoresInvalid(t *testing.T) {
	s := NewSettings()
	fired := false
	s.Subscribe(func(int) { fired = true })

	s.set(0)
	assert.False(t, fired)
	assert.Equal(t, 24, s.AlarmHours())
}

func TestSettingsMultipleSubscribers(t *testing.T) {
	s := NewSettings()
	a, b := 0, 0
	s.Subscribe(func(h int) { a = h })
	s.Subscribe(func(h int) { b = h })

	s.set(6)
	assert.Equal(t, 6, a)
	assert.Equal(t, 6, b)
}
