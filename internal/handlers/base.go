package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/repositories"
)

// GetUserID returns the authenticated caller or a 401.
func GetUserID(c echo.Context) (uuid.UUID, error) {
	return repositories.GetUserID(c.Request().Context())
}

// OptionalUserID returns uuid.Nil for anonymous callers.
func OptionalUserID(c echo.Context) uuid.UUID {
	userID, err := GetUserID(c)
	if err != nil {
		return uuid.Nil
	}
	return userID
}

func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

func Unauthorized(message string) error {
	return httperror.NewHTTPError(http.StatusUnauthorized, message)
}
