package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/service"
)

// requestTimeout bounds the work a single handler does against the stores.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps service and repository errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic message.
func respondError(c echo.Context, err error) error {
	var verr *repository.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrNotApproved):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account pending approval"})
	case errors.Is(err, service.ErrInvalidRefresh):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	case errors.Is(err, service.ErrRoleNotAllowed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	middleware.SetError(c, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// int64Param parses a numeric path parameter (post and photo ids).
func int64Param(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
