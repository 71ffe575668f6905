package api

import (
	"errors"
	"net/http"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const internalMessage = "Internal server error"

// ErrorHandler writes every handler error as {"error": message}. Internal causes are logged, never returned.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := internalMessage

		var appErr *apperror.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.HTTPStatus()
			if appErr.Kind != apperror.KindInternal {
				msg = appErr.Message
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if m, ok := httpErr.Message.(string); ok && status < http.StatusInternalServerError {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Msg("Request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, map[string]string{"error": msg})
		}
		if err != nil {
			logger.Error().Err(err).Msg("Error writing error response")
		}
	}
}
