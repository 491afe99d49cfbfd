package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

// writeFailure maps a multiplication error onto a status code.
func writeFailure(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, failure.ErrInvalidArgument):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, failure.ErrResourceExhausted):
		return writeError(c, http.StatusInternalServerError, "resource_exhausted_error", err.Error())
	case errors.Is(err, failure.ErrCollectiveFailure):
		return writeError(c, http.StatusInternalServerError, "collective_error", err.Error())
	case errors.Is(err, failure.ErrWorkerFailed):
		return writeError(c, http.StatusInternalServerError, "worker_error", err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("invalid JSON body: " + err.Error())
	}
	return out, nil
}
