package utils

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

const invalidBody = "Invalid request body."

// BindRequest decodes the request body into T and validates it. A body that
// cannot be decoded is a generic 400; a validation failure is a 400 carrying
// the field message so clients can show it as is.
func BindRequest[T any](c echo.Context) (T, error) {
	var req T
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return req, httperror.NewHTTPError(http.StatusBadRequest, invalidBody)
	}

	req, err := Validate(req)
	if err != nil {
		return req, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}
