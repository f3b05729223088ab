package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/service"
)

// AvailabilityHandler serves /v1/availability.
type AvailabilityHandler struct {
	Svc *service.AvailabilityService
	Log *zap.Logger
}

func NewAvailabilityHandler(svc *service.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Svc: svc, Log: log}
}

type availabilityReq struct {
	Date      string  `json:"date"      validate:"required,ymd"`
	Available *bool   `json:"available" validate:"required"`
	Notes     *string `json:"notes"`
}

type bulkAvailabilityReq struct {
	Dates     []string `json:"dates"`
	Available *bool    `json:"available" validate:"required"`
	Notes     *string  `json:"notes"`
}

// List handles GET /v1/availability?date&start_date&end_date&user_id.
func (h *AvailabilityHandler) List(c echo.Context) error {
	var (
		f   model.AvailabilityFilter
		err error
	)
	if f.Date, err = queryDate(c, "date"); err != nil {
		return writeError(c, h.Log, err)
	}
	if f.StartDate, err = queryDate(c, "start_date"); err != nil {
		return writeError(c, h.Log, err)
	}
	if f.EndDate, err = queryDate(c, "end_date"); err != nil {
		return writeError(c, h.Log, err)
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		f.UserID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || f.UserID == 0 {
			return writeError(c, h.Log, service.ValidationError("Invalid user_id",
				service.FieldError{Field: "user_id", Message: "must be a positive integer"}))
		}
	}
	out, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"availability": out})
}

// Submit handles POST /v1/availability.  A second submission for the same
// date replaces the first.
func (h *AvailabilityHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	var req availabilityReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	date, _ := model.ParseDate(req.Date)
	a, err := h.Svc.Submit(c.Request().Context(), uid, date, *req.Available, req.Notes)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"availability": a})
}

// SubmitBulk handles POST /v1/availability/bulk.  Each date is stored
// independently; unparseable dates are reported under "failed".
func (h *AvailabilityHandler) SubmitBulk(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	var req bulkAvailabilityReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}

	dates := make([]model.Date, 0, len(req.Dates))
	var unparsed []string
	for _, raw := range req.Dates {
		d, err := model.ParseDate(raw)
		if err != nil {
			unparsed = append(unparsed, raw)
			continue
		}
		dates = append(dates, d)
	}

	res := &service.BulkResult{Results: []model.Availability{}, Failed: []service.FailedDate{}}
	if len(dates) > 0 || len(unparsed) == 0 {
		res, err = h.Svc.SubmitBulk(c.Request().Context(), uid, dates, *req.Available, req.Notes)
		if err != nil {
			return writeError(c, h.Log, err)
		}
	}

	failed := make([]echo.Map, 0, len(res.Failed)+len(unparsed))
	for _, raw := range unparsed {
		failed = append(failed, echo.Map{"date": raw, "error": "invalid date"})
	}
	for _, f := range res.Failed {
		failed = append(failed, echo.Map{"date": f.Date, "error": f.Error})
	}
	return c.JSON(http.StatusCreated, echo.Map{"availability": res.Results, "failed": failed})
}

// Delete handles DELETE /v1/availability/:id.  Only the owner may delete; a
// foreign declaration is reported as not found.
func (h *AvailabilityHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	a, err := h.Svc.Delete(c.Request().Context(), id, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability deleted", "availability": a})
}
