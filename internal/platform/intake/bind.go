package intake

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Bind decodes the request body into dst. A malformed body is reported as an
// HTTP 400; field errors come back as *outcome.Error.
func Bind(c echo.Context, schema Schema, dst interface{}) error {
	err := Decode(c.Request().Body, schema, dst)
	if errors.Is(err, ErrMalformed) {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return err
}
