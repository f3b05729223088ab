package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crew-booking/internal/model"
)

// RequireUserType rejects requests whose caller is not one of types with
// 403.  It must run after JWTAuth.
func RequireUserType(types ...model.UserType) echo.MiddlewareFunc {
	allowed := make(map[model.UserType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t, ok := UserType(c)
			if !ok || !allowed[t] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
			}
			return next(c)
		}
	}
}
