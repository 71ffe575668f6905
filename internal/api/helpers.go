package api

import (
	"strconv"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/labstack/echo/v4"
)

// parseID reads the :id path parameter, which must be a positive integer.
func parseID(c echo.Context, msg string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation(msg)
	}
	return id, nil
}

func invalidPayload(c echo.Context) error {
	return c.JSON(400, map[string]string{"error": "Invalid request payload"})
}

func message(msg string) map[string]string {
	return map[string]string{"message": msg}
}
