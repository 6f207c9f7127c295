package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Checkin is one daily record. Optional fields are nil when not reported.
type Checkin struct {
	ID         uint64  `json:"id"`
	Date       string  `json:"date"`
	Alive      bool    `json:"alive"`
	SleepHours *int    `json:"sleep_hours"`
	Energy     *int    `json:"energy"`
	Mood       *int    `json:"mood"`
	Note       *string `json:"note"`
}

// CheckinInput carries the writable fields; nil means "not reported" for a
// create and "leave unchanged" for an edit.
type CheckinInput struct {
	Alive      *bool   `json:"alive,omitempty"`
	SleepHours *int    `json:"sleep_hours,omitempty"`
	Energy     *int    `json:"energy,omitempty"`
	Mood       *int    `json:"mood,omitempty"`
	Note       *string `json:"note,omitempty"`
}

// CheckinStats is the fixed 30-day aggregate.
type CheckinStats struct {
	StreakDays    int     `json:"streak_days"`
	CheckinRate   float64 `json:"checkin_rate"`
	AvgSleepHours float64 `json:"avg_sleep_hours"`
	TotalDays     int     `json:"total_days"`
	Checkins      int     `json:"checkins"`
	WindowDays    int     `json:"window_days"`
}

// CheckinSummary aggregates a caller-chosen window; averages cover only
// records where the field was reported.
type CheckinSummary struct {
	CheckinRate   float64 `json:"checkin_rate"`
	AvgSleepHours float64 `json:"avg_sleep_hours"`
	AvgEnergy     float64 `json:"avg_energy"`
	AvgMood       float64 `json:"avg_mood"`
	Checkins      int     `json:"checkins"`
	WindowDays    int     `json:"window_days"`
}

// UpsertToday submits today's check-in; resubmitting overwrites.
func (c *Client) UpsertToday(ctx context.Context, in CheckinInput) (*Checkin, error) {
	var out Checkin
	if err := c.post(ctx, "/checkins/today", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Today returns today's record, or (nil, nil) when none exists yet. The 404
// means "no record", not a failure.
func (c *Client) Today(ctx context.Context) (*Checkin, error) {
	var out Checkin
	if err := c.get(ctx, "/checkins/today", &out); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

const checkinDateLayout = "2006-01-02"

// UpdateByDate edits a past record. Obviously stale edits are rejected
// locally so they never hit the network; the check is deliberately one day
// looser than the server's 7-day window because the window runs on the
// user's timezone and this pre-check only knows UTC. Borderline dates go
// through and the server decides.
func (c *Client) UpdateByDate(ctx context.Context, date string, in CheckinInput) (*Checkin, error) {
	day, err := time.Parse(checkinDateLayout, date)
	if err != nil {
		return nil, validationError("日期格式不正确")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if int(today.Sub(day.Truncate(24*time.Hour)).Hours()/24) > 7 {
		return nil, validationError("超过可编辑时间，无法修改")
	}
	var out Checkin
	if err := c.put(ctx, "/checkins/"+date, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCheckinsOptions tunes ListCheckins; zero values mean server defaults.
type ListCheckinsOptions struct {
	Limit  int
	Offset int
	Desc   bool
	From   string
	To     string
}

// ListCheckins pages through the caller's records.
func (c *Client) ListCheckins(ctx context.Context, opts ListCheckinsOptions) ([]Checkin, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Desc {
		q.Set("order", "desc")
	}
	if opts.From != "" {
		q.Set("from", opts.From)
	}
	if opts.To != "" {
		q.Set("to", opts.To)
	}
	path := "/checkins"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Checkin
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the fixed 30-day aggregate.
func (c *Client) Stats(ctx context.Context) (*CheckinStats, error) {
	var out CheckinStats
	if err := c.get(ctx, "/checkins/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary aggregates the last windowDays days (1..365).
func (c *Client) Summary(ctx context.Context, windowDays int) (*CheckinSummary, error) {
	if windowDays < 1 || windowDays > 365 {
		return nil, validationError("统计窗口需在 1 到 365 天之间")
	}
	var out CheckinSummary
	if err := c.get(ctx, fmt.Sprintf("/checkins/summary?days=%d", windowDays), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
