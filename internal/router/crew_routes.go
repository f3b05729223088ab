package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crew-booking/internal/handler"
	"github.com/iliyamo/crew-booking/internal/middleware"
	"github.com/iliyamo/crew-booking/internal/model"
)

// RegisterAvailability registers /v1/availability.  Any authenticated
// person may declare and list availability; deletion is owner-only and
// checked by the service.
func RegisterAvailability(e *echo.Echo, h *handler.AvailabilityHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/availability", protected(jwtSecret, mw)...)
	g.GET("", h.List)
	g.POST("", h.Submit)
	g.POST("/bulk", h.SubmitBulk)
	g.DELETE("/:id", h.Delete)
}

// RegisterEvents registers /v1/events.  Reads are open to every
// authenticated person; writes are reserved for managers.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/events", protected(jwtSecret, mw)...)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/roster", h.Roster)

	managers := middleware.RequireUserType(model.EventCoordinators...)
	g.POST("", h.Create, managers)
	g.PUT("/:id", h.Update, managers)
	g.DELETE("/:id", h.Delete, managers)
}

// RegisterBookings registers /v1/bookings.  Proposals and the needs view
// are for musical directors and heads of sound; accept and decline are
// checked against the booked person by the service.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings", protected(jwtSecret, mw)...)
	coordinators := middleware.RequireUserType(model.BookingCoordinators...)

	g.POST("", h.Propose, coordinators)
	g.GET("/booking-needs", h.BookingNeeds, coordinators)
	g.GET("/my-bookings", h.MyBookings)
	g.PUT("/:id/accept", h.Accept)
	g.PUT("/:id/decline", h.Decline)
}
