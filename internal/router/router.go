package router

import (
	"github.com/labstack/echo/v4"

	"github.com/sileme/sileme/internal/handler"
	"github.com/sileme/sileme/internal/middleware"
)

// Handlers collects everything the route table needs.
type Handlers struct {
	Auth          *handler.AuthHandler
	Profile       *handler.ProfileHandler
	Checkins      *handler.CheckinHandler
	Friends       *handler.FriendHandler
	Groups        *handler.GroupHandler
	Notifications *handler.NotificationHandler
}

// Register wires every route onto e. Everything below the auth endpoints
// requires a bearer access token.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	e.POST("/auth/register", h.Auth.Register)
	e.POST("/auth/login", h.Auth.Login)
	e.POST("/auth/refresh", h.Auth.Refresh)
	e.POST("/auth/logout", h.Auth.Logout)
	e.POST("/auth/request-code", h.Auth.RequestCode)

	api := e.Group("", middleware.JWTAuth(jwtSecret))

	api.GET("/me", h.Auth.Me)
	api.PUT("/me/profile", h.Profile.UpdateProfile)
	api.GET("/me/contacts", h.Profile.GetContacts)
	api.PUT("/me/contacts", h.Profile.PutContacts)
	api.GET("/auth/devices", h.Auth.Devices)
	api.POST("/auth/logout-device", h.Auth.LogoutDevice)

	api.POST("/checkins/today", h.Checkins.UpsertToday)
	api.GET("/checkins/today", h.Checkins.GetToday)
	api.PUT("/checkins/:date", h.Checkins.UpdateByDate)
	api.GET("/checkins", h.Checkins.List)
	api.GET("/checkins/stats", h.Checkins.Stats)
	api.GET("/checkins/summary", h.Checkins.Summary)

	api.POST("/friends/request", h.Friends.Request)
	api.POST("/friends/accept", h.Friends.Accept)
	api.GET("/friends", h.Friends.List)
	api.GET("/friends/:id", h.Friends.Detail)
	api.GET("/friends/:id/permission", h.Friends.GetPermission)
	api.POST("/friends/:id/permission", h.Friends.UpdatePermission)
	api.POST("/friends/:id/remind", h.Friends.Remind)
	api.POST("/friends/:id/encourage", h.Friends.Encourage)

	api.GET("/groups", h.Groups.List)
	api.POST("/groups", h.Groups.Create)
	api.POST("/groups/join", h.Groups.Join)
	api.GET("/groups/:id", h.Groups.Detail)
	api.POST("/groups/:id/name", h.Groups.UpdateName)
	api.POST("/groups/:id/announcement", h.Groups.UpdateAnnouncement)
	api.POST("/groups/:id/invite-code", h.Groups.RotateInviteCode)
	api.POST("/groups/:id/members/:userId/approve", h.Groups.Approve)
	api.POST("/groups/:id/members/:userId/reject", h.Groups.Reject)
	api.POST("/groups/:id/remind", h.Groups.Remind)
	api.POST("/groups/:id/encourage", h.Groups.Encourage)
	api.GET("/groups/:id/encouragements", h.Groups.Encouragements)

	api.GET("/notifications", h.Notifications.List)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)
	api.POST("/notifications/read-all", h.Notifications.MarkAllRead)
}
