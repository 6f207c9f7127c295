package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sileme/sileme/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEditableWindow(t *testing.T) {
	today := day("2025-06-15")

	// Exactly 7 days old is already locked; 6 days old still edits.
	assert.False(t, editable(day("2025-06-08"), today))
	assert.True(t, editable(day("2025-06-09"), today))
	assert.True(t, editable(today, today))
	// Future-dated records are trivially inside the window.
	assert.True(t, editable(day("2025-06-16"), today))
}

func intp(v int) *int { return &v }

func TestAvgExcludesMissing(t *testing.T) {
	recs := []model.Checkin{
		{Mood: intp(4)},
		{Mood: nil},
		{Mood: intp(2)},
	}
	vals := collect(recs, func(r model.Checkin) *int { return r.Mood })
	assert.Equal(t, []int{4, 2}, vals)
	assert.Equal(t, 3.0, avg(vals))
}

func TestAvgEmpty(t *testing.T) {
	assert.Equal(t, 0.0, avg(nil))
}

func TestStreakDays(t *testing.T) {
	today := day("2025-06-15")

	recs := []model.Checkin{
		{Date: day("2025-06-15")},
		{Date: day("2025-06-14")},
		{Date: day("2025-06-13")},
		{Date: day("2025-06-11")}, // gap on the 12th stops the count
	}
	assert.Equal(t, 3, streakDays(recs, today))

	// No record today means no streak, however long the history.
	assert.Equal(t, 0, streakDays([]model.Checkin{{Date: day("2025-06-14")}}, today))
	assert.Equal(t, 0, streakDays(nil, today))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.667, round(2.0/3.0, 3))
	assert.Equal(t, 7.46, round(7.456, 2))
	assert.Equal(t, 3.0, round(3.0, 2))
}

func TestCheckinReqValidate(t *testing.T) {
	assert.Empty(t, checkinReq{}.validate())
	assert.Empty(t, checkinReq{Energy: intp(1), Mood: intp(5)}.validate())
	assert.NotEmpty(t, checkinReq{Energy: intp(0)}.validate())
	assert.NotEmpty(t, checkinReq{Energy: intp(6)}.validate())
	assert.NotEmpty(t, checkinReq{Mood: intp(6)}.validate())
}

func TestCheckinReqFieldsDefaultAlive(t *testing.T) {
	assert.True(t, checkinReq{}.fields().Alive)

	alive := false
	assert.False(t, checkinReq{Alive: &alive}.fields().Alive)
}
