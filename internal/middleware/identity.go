package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crew-booking/internal/model"
)

// UserID returns the authenticated caller's ID, or false when JWTAuth has
// not run.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// UserType returns the authenticated caller's user type.
func UserType(c echo.Context) (model.UserType, bool) {
	t, ok := c.Get(CtxUserType).(model.UserType)
	return t, ok && t != ""
}

// currentUserID is the caller identity used in rate-limit and cache keys.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
