package handler

import (
	"github.com/labstack/echo/v4"
)

// fail writes the API error shape {"detail": "..."} with the given status.
func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"detail": msg})
}

// currentUserID reads the authenticated user id placed in the context by the
// JWT middleware. Zero means unauthenticated and never matches a row.
func currentUserID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}
