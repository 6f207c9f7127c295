package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
	"github.com/sileme/sileme/internal/utils"
)

// editWindowDays is the trailing window inside which a past check-in may
// still be edited. A record exactly this many days old is already locked.
const editWindowDays = 7

// statsWindowDays is the fixed window for the stats endpoint.
const statsWindowDays = 30

type CheckinHandler struct {
	Users    *repository.UserRepo
	Checkins *repository.CheckinRepo
}

func NewCheckinHandler(u *repository.UserRepo, ch *repository.CheckinRepo) *CheckinHandler {
	return &CheckinHandler{Users: u, Checkins: ch}
}

type checkinReq struct {
	Alive      *bool   `json:"alive"`
	SleepHours *int    `json:"sleep_hours"`
	Energy     *int    `json:"energy"`
	Mood       *int    `json:"mood"`
	Note       *string `json:"note"`
}

func (r checkinReq) fields() repository.Fields {
	alive := true
	if r.Alive != nil {
		alive = *r.Alive
	}
	return repository.Fields{
		Alive: alive, SleepHours: r.SleepHours, Energy: r.Energy,
		Mood: r.Mood, Note: r.Note,
	}
}

func (r checkinReq) validate() string {
	if r.Energy != nil && (*r.Energy < 1 || *r.Energy > 5) {
		return "energy must be between 1 and 5"
	}
	if r.Mood != nil && (*r.Mood < 1 || *r.Mood > 5) {
		return "mood must be between 1 and 5"
	}
	return ""
}

type checkinResp struct {
	ID         uint64  `json:"id"`
	Date       string  `json:"date"`
	Alive      bool    `json:"alive"`
	SleepHours *int    `json:"sleep_hours"`
	Energy     *int    `json:"energy"`
	Mood       *int    `json:"mood"`
	Note       *string `json:"note"`
}

func toCheckinResp(c model.Checkin) checkinResp {
	return checkinResp{
		ID: c.ID, Date: c.Date.Format(utils.DateLayout), Alive: c.Alive,
		SleepHours: c.SleepHours, Energy: c.Energy, Mood: c.Mood, Note: c.Note,
	}
}

func (h *CheckinHandler) user(ctx context.Context, c echo.Context) (model.User, error) {
	return h.Users.GetByID(ctx, currentUserID(c))
}

// UpsertToday creates or overwrites today's record for the user's local
// calendar day. Idempotent per day.
func (h *CheckinHandler) UpsertToday(c echo.Context) error {
	var req checkinReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.user(ctx, c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	today := utils.LocalDay(u.Timezone)
	rec, err := h.Checkins.Upsert(ctx, u.ID, today, req.fields())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	_ = h.Users.TouchLastCheckin(ctx, u.ID, time.Now().UTC())
	return c.JSON(http.StatusOK, toCheckinResp(rec))
}

// GetToday returns today's record, or 404 when the user has not checked in
// yet. The client treats that 404 as "no record", not as a failure.
func (h *CheckinHandler) GetToday(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.user(ctx, c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	rec, err := h.Checkins.GetByDate(ctx, u.ID, utils.LocalDay(u.Timezone))
	if err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusNotFound, "No check-in for today")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	return c.JSON(http.StatusOK, toCheckinResp(rec))
}

// editable reports whether a record dated day may still be edited on today.
// Day granularity: exactly editWindowDays old is already locked.
func editable(day, today time.Time) bool {
	return utils.DaysBetween(day, today) < editWindowDays
}

// UpdateByDate edits an existing record inside the trailing edit window.
func (h *CheckinHandler) UpdateByDate(c echo.Context) error {
	day, err := time.ParseInLocation(utils.DateLayout, c.Param("date"), time.UTC)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid date")
	}
	var req checkinReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.user(ctx, c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	if !editable(day, utils.LocalDay(u.Timezone)) {
		return fail(c, http.StatusBadRequest, "Edit window expired")
	}
	if _, err := h.Checkins.GetByDate(ctx, u.ID, day); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, http.StatusNotFound, "No check-in for this date")
		}
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	rec, err := h.Checkins.UpdateByDate(ctx, u.ID, day, req.fields())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Save failed")
	}
	return c.JSON(http.StatusOK, toCheckinResp(rec))
}

// List returns the caller's records with optional date bounds, paging and
// ordering (?limit=&offset=&order=asc|desc&from=&to=).
func (h *CheckinHandler) List(c echo.Context) error {
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 1000 {
			limit = n
		}
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	desc := c.QueryParam("order") == "desc"

	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		d, err := time.ParseInLocation(utils.DateLayout, v, time.UTC)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid from date")
		}
		from = &d
	}
	if v := c.QueryParam("to"); v != "" {
		d, err := time.ParseInLocation(utils.DateLayout, v, time.UTC)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid to date")
		}
		to = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Checkins.List(ctx, currentUserID(c), from, to, limit, offset, desc)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}
	out := make([]checkinResp, 0, len(recs))
	for _, r := range recs {
		out = append(out, toCheckinResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

type statsResp struct {
	StreakDays    int     `json:"streak_days"`
	CheckinRate   float64 `json:"checkin_rate"`
	AvgSleepHours float64 `json:"avg_sleep_hours"`
	TotalDays     int     `json:"total_days"`
	Checkins      int     `json:"checkins"`
	WindowDays    int     `json:"window_days"`
}

// Stats aggregates the fixed 30-day window: current streak, check-in rate
// and average sleep.
func (h *CheckinHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.user(ctx, c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	today := utils.LocalDay(u.Timezone)
	start := today.AddDate(0, 0, -(statsWindowDays - 1))
	recs, err := h.Checkins.Range(ctx, u.ID, start, today)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}

	sleep := collect(recs, func(r model.Checkin) *int { return r.SleepHours })
	return c.JSON(http.StatusOK, statsResp{
		StreakDays:    streakDays(recs, today),
		CheckinRate:   round(float64(len(recs))/statsWindowDays, 3),
		AvgSleepHours: round(avg(sleep), 2),
		TotalDays:     statsWindowDays,
		Checkins:      len(recs),
		WindowDays:    statsWindowDays,
	})
}

type summaryResp struct {
	CheckinRate   float64 `json:"checkin_rate"`
	AvgSleepHours float64 `json:"avg_sleep_hours"`
	AvgEnergy     float64 `json:"avg_energy"`
	AvgMood       float64 `json:"avg_mood"`
	Checkins      int     `json:"checkins"`
	WindowDays    int     `json:"window_days"`
}

// Summary aggregates a caller-chosen window (?days=N, default 30, max 365).
// Averages only cover records where the field is present: a missing mood is
// excluded, never counted as zero.
func (h *CheckinHandler) Summary(c echo.Context) error {
	days := 30
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			return fail(c, http.StatusBadRequest, "days must be between 1 and 365")
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.user(ctx, c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Load user failed")
	}
	today := utils.LocalDay(u.Timezone)
	start := today.AddDate(0, 0, -(days - 1))
	recs, err := h.Checkins.Range(ctx, u.ID, start, today)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Query failed")
	}

	return c.JSON(http.StatusOK, summaryResp{
		CheckinRate:   round(float64(len(recs))/float64(days), 3),
		AvgSleepHours: round(avg(collect(recs, func(r model.Checkin) *int { return r.SleepHours })), 2),
		AvgEnergy:     round(avg(collect(recs, func(r model.Checkin) *int { return r.Energy })), 2),
		AvgMood:       round(avg(collect(recs, func(r model.Checkin) *int { return r.Mood })), 2),
		Checkins:      len(recs),
		WindowDays:    days,
	})
}

// streakDays counts consecutive checked-in days ending today.
func streakDays(recs []model.Checkin, today time.Time) int {
	dates := make(map[string]bool, len(recs))
	for _, r := range recs {
		dates[r.Date.Format(utils.DateLayout)] = true
	}
	streak := 0
	cursor := today
	for dates[cursor.Format(utils.DateLayout)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// collect pulls the present values of one optional field.
func collect(recs []model.Checkin, get func(model.Checkin) *int) []int {
	var out []int
	for _, r := range recs {
		if v := get(r); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// avg returns the mean of vals, 0 for an empty slice.
func avg(vals []int) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
