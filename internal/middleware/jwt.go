package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crew-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID       = "user_id"
	CtxUserType     = "user_type"
	CtxRoleCategory = "role_category"
	CtxName         = "name"
)

// JWTAuth validates a Bearer access token and stores the caller's identity
// in the echo context: user_id (uint64), user_type (model.UserType),
// role_category (model.RoleCategory) and name (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No authentication token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}
			id, _ := claims.UserID()

			c.Set(CtxUserID, id)
			c.Set(CtxUserType, claims.UserType)
			c.Set(CtxRoleCategory, claims.RoleCategory)
			c.Set(CtxName, claims.Name)
			return next(c)
		}
	}
}
