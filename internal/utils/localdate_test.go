package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOf(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	// 23:30 local on Jan 2 is still Jan 2, regardless of the UTC clock.
	late := time.Date(2025, 1, 2, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), DayOf(late))

	early := time.Date(2025, 1, 2, 0, 10, 0, 0, loc)
	assert.Equal(t, DayOf(late), DayOf(early))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 7, DaysBetween(a, b))
	assert.Equal(t, -7, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))

	// Partial days never count.
	c := time.Date(2025, 3, 8, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 7, DaysBetween(a, c))
}

func TestLocalDayUnknownTimezone(t *testing.T) {
	// Unknown zones fall back to UTC instead of failing.
	assert.Equal(t, LocalDay("UTC"), LocalDay("Not/AZone"))
}
