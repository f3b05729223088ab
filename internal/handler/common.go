// Package handler implements the HTTP endpoints.  Handlers bind and validate
// requests, call the service layer and translate its typed errors into
// status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/middleware"
	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/service"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the authenticated caller set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ValidationError("Invalid " + name, service.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (model.Date, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, service.ValidationError("Invalid "+name, service.FieldError{Field: name, Message: "must be a date formatted YYYY-MM-DD"})
	}
	return d, nil
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return service.ValidationError("Invalid request body")
	}
	return c.Validate(req)
}

// writeError maps err to a JSON error response.  Internal errors are logged
// with their cause and reported as "server error".
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Message: "server error", Err: err}
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindAuthentication:
		status = http.StatusUnauthorized
	case service.KindAuthorization:
		status = http.StatusForbidden
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindConflict, service.KindStorage:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(se))
		return c.JSON(status, echo.Map{"error": "server error"})
	}
	if se.Kind == service.KindStorage {
		log.Warn("storage constraint rejected write", zap.String("path", c.Path()), zap.Error(se))
	}

	body := echo.Map{"error": se.Message}
	if len(se.Fields) > 0 {
		body["errors"] = se.Fields
	}
	return c.JSON(status, body)
}
