package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
	"kanban-api/storage"
)

// errorResponse is the JSON envelope for every error the API returns.
type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Message: message, Status: status})
}

// storeError maps storage and validation failures onto the API's error
// contract: not-found (404) is deliberately distinct from forbidden (403),
// and validation failures stay in the 4xx range.
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrProjectNotFound):
		return jsonError(c, http.StatusNotFound, "project not found")
	case errors.Is(err, storage.ErrItemNotFound):
		return jsonError(c, http.StatusNotFound, "item not found")
	case errors.Is(err, storage.ErrSecretInUse):
		return jsonError(c, http.StatusConflict, "secret key already in use")
	}
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return jsonError(c, http.StatusBadRequest, ve.Error())
	}
	c.Logger().Error(err)
	return jsonError(c, http.StatusInternalServerError, "internal error")
}
