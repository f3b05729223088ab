// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crew-booking/internal/handler"
	"github.com/iliyamo/crew-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.  db
// may be nil, in which case /healthz only reports liveness.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the identity endpoints.  Register, login, refresh
// and logout live under /v1/auth without a session; /v1/me and
// /v1/logout-all need a valid access token.  mw runs after authentication.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", mw...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", protected(jwtSecret, mw)...)
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.LogoutAll)
}

// protected builds the middleware chain of an authenticated group.
func protected(jwtSecret string, mw []echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mw...)
}
