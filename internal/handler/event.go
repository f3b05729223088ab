package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/service"
)

// EventHandler serves /v1/events.
type EventHandler struct {
	Svc *service.EventService
	Log *zap.Logger
}

func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{Svc: svc, Log: log}
}

type positionReq struct {
	Role     string `json:"role"     validate:"required,rolecategory"`
	Quantity int    `json:"quantity"`
}

type eventReq struct {
	Date      string        `json:"date"      validate:"omitempty,ymd"`
	Venue     string        `json:"venue"`
	Time      string        `json:"time"`
	Name      string        `json:"name"`
	Notes     *string       `json:"notes"`
	Positions []positionReq `json:"positions" validate:"dive"`
	Status    string        `json:"status"`
}

func (r eventReq) input() service.EventInput {
	d, _ := model.ParseDate(r.Date)
	in := service.EventInput{
		Date:   d,
		Venue:  r.Venue,
		Time:   r.Time,
		Name:   r.Name,
		Notes:  r.Notes,
		Status: r.Status,
	}
	for _, p := range r.Positions {
		in.Positions = append(in.Positions, service.PositionInput{Role: p.Role, Quantity: p.Quantity})
	}
	return in
}

// List handles GET /v1/events?start_date&end_date&status.  status may list
// several values separated by commas.
func (h *EventHandler) List(c echo.Context) error {
	var (
		f   model.EventFilter
		err error
	)
	if f.StartDate, err = queryDate(c, "start_date"); err != nil {
		return writeError(c, h.Log, err)
	}
	if f.EndDate, err = queryDate(c, "end_date"); err != nil {
		return writeError(c, h.Log, err)
	}
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, err := model.ParseEventStatus(strings.TrimSpace(s))
			if err != nil {
				return writeError(c, h.Log, service.ValidationError("Invalid status",
					service.FieldError{Field: "status", Message: err.Error()}))
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	events, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	d, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Roster handles GET /v1/events/:id/roster.
func (h *EventHandler) Roster(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Svc.Roster(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	e, positions, err := h.Svc.Create(c.Request().Context(), uid, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"event": e, "positions": positions})
}

// Update handles PUT /v1/events/:id.  Every field is overwritten; status
// may be set by hand.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	e, err := h.Svc.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": e})
}

// Delete handles DELETE /v1/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	e, err := h.Svc.Delete(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event deleted", "event": e})
}
