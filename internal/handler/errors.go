package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/service"
)

// retryAfterSeconds is advertised on transient failures; the whole
// operation may be retried from scratch.
const retryAfterSeconds = 1

// statusClientClosedRequest is reported, and logged by the request logger,
// when the client went away before the operation finished.
const statusClientClosedRequest = 499

// errorJSON writes the uniform error body {"error": msg, "code": code}.
func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// statusFor maps a taxonomy kind to its HTTP status.
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation, service.KindInsufficient:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	case service.KindTransient:
		return http.StatusServiceUnavailable
	case service.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates a service error into an HTTP response.  Internal
// errors are logged and reported without detail.
func respondError(c echo.Context, err error) error {
	kind := service.Kind(err)
	status := statusFor(kind)
	switch kind {
	case service.KindInternal:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return errorJSON(c, status, string(kind), "internal server error")
	case service.KindTransient:
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	return errorJSON(c, status, string(kind), err.Error())
}

// HTTPErrorHandler renders errors returned by handlers and by Echo itself
// (unknown route, bad method, bind failures) in the same JSON shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		code := "http_error"
		switch he.Code {
		case http.StatusNotFound:
			code = string(service.KindNotFound)
		case http.StatusBadRequest:
			code = string(service.KindValidation)
		case http.StatusUnauthorized:
			code = "unauthenticated"
		case http.StatusForbidden:
			code = string(service.KindUnauthorized)
		}
		_ = errorJSON(c, he.Code, code, msg)
		return
	}
	_ = respondError(c, err)
}
