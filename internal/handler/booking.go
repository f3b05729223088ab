package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/service"
)

// BookingHandler serves /v1/bookings.
type BookingHandler struct {
	Engine *service.Engine
	Needs  *service.NeedsProjector
	Log    *zap.Logger
}

func NewBookingHandler(engine *service.Engine, needs *service.NeedsProjector, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Engine: engine, Needs: needs, Log: log}
}

type proposeReq struct {
	EventID  uint64 `json:"event_id" validate:"required"`
	Position string `json:"position" validate:"required"`
	UserID   uint64 `json:"user_id"  validate:"required"`
}

// Propose handles POST /v1/bookings.
func (h *BookingHandler) Propose(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	var req proposeReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	p, err := h.Engine.ProposeBooking(c.Request().Context(), service.ProposeRequest{
		EventID:  req.EventID,
		Role:     req.Position,
		PersonID: req.UserID,
		ActorID:  uid,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": p.Booking, "message": p.Message})
}

// Accept handles PUT /v1/bookings/:id/accept.
func (h *BookingHandler) Accept(c echo.Context) error {
	return h.respond(c, service.Accept)
}

// Decline handles PUT /v1/bookings/:id/decline.
func (h *BookingHandler) Decline(c echo.Context) error {
	return h.respond(c, service.Decline)
}

func (h *BookingHandler) respond(c echo.Context, d service.Decision) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Engine.RespondToBooking(c.Request().Context(), id, uid, d)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": r.Booking, "message": r.Message})
}

// MyBookings handles GET /v1/bookings/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	mine, err := h.Engine.ListMyBookings(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, mine)
}

// BookingNeeds handles GET /v1/bookings/booking-needs.
func (h *BookingHandler) BookingNeeds(c echo.Context) error {
	events, err := h.Needs.ListOpenNeeds(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}
