package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/crew-booking/internal/service"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{service.ValidationError("Invalid position", service.FieldError{Field: "position", Message: "unknown role category"}),
			http.StatusBadRequest, `{"error":"Invalid position","errors":[{"field":"position","message":"unknown role category"}]}`},
		{service.AuthenticationError("Invalid credentials"), http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
		{service.AuthorizationError("Not authorized"), http.StatusForbidden, `{"error":"Not authorized"}`},
		{service.NotFoundError("Event not found"), http.StatusNotFound, `{"error":"Event not found"}`},
		{service.ConflictError("Booking already declined"), http.StatusConflict, `{"error":"Booking already declined"}`},
		{service.StorageError("Person already booked for this event", errors.New("1062")), http.StatusConflict, `{"error":"Person already booked for this event"}`},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, `{"error":"server error"}`},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, writeError(c, zap.NewNop(), tc.err))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, rec.Body.String())
	}
}

func TestWriteErrorLogsInternalCause(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events", nil), rec)

	require.NoError(t, writeError(c, zap.New(core), errors.New("deadlock found")))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "deadlock found")
	assert.NotContains(t, rec.Body.String(), "deadlock")
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		db   Pinger
		code int
	}{
		{nil, http.StatusOK},
		{fakePinger{}, http.StatusOK},
		{fakePinger{err: errors.New("down")}, http.StatusServiceUnavailable},
	} {
		e := echo.New()
		e.GET("/healthz", Health(tc.db))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, tc.code, rec.Code)
	}
}

func TestValidatorFieldNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&proposeReq{Position: "Guitar"})
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindValidation, se.Kind)
	assert.ElementsMatch(t, []service.FieldError{
		{Field: "event_id", Message: "is required"},
		{Field: "user_id", Message: "is required"},
	}, se.Fields)

	assert.NoError(t, v.Validate(&positionReq{Role: "Monitor Engineer"}))
	assert.Error(t, v.Validate(&positionReq{Role: "monitor engineer"}))
}
