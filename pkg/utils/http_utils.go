package utils

import (
	"errors"
	"net/http"

	"taxi-booking/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

// SessionCookie carries the JWT for browser page requests.
const SessionCookie = "session"

func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

func RespondWithError(c echo.Context, code int, message string) error {
	return c.JSON(code, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service sentinel errors to HTTP responses.
func HandleServiceError(c echo.Context, err error) error {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return RespondWithError(c, http.StatusBadRequest, "Validation failed: "+err.Error())
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrForbidden):
		return RespondWithError(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, models.ErrInvalidStatus), errors.Is(err, models.ErrInvalidEndpoint):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrAddressNotFound), errors.Is(err, models.ErrRouteNotFound),
		errors.Is(err, models.ErrDistanceOutOfRange):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrEndpointsNotConfirmed), errors.Is(err, models.ErrInvalidStep):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrNoPaymentSession),
		errors.Is(err, models.ErrPaymentMismatch):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		return RespondWithError(c, http.StatusUnauthorized, err.Error())
	}
	c.Logger().Error(err)
	return RespondWithError(c, http.StatusInternalServerError, "An internal error occurred")
}

// GetUserIDFromContext returns the authenticated user id or an error when the
// request carries no session.
func GetUserIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get(ContextUserID).(string)
	if !ok || userID == "" {
		return "", errors.New("user not authenticated")
	}
	return userID, nil
}

// RequesterFromContext builds the order-store requester from what the auth
// middleware left on the context. Requests without a session are anonymous.
func RequesterFromContext(c echo.Context) models.Requester {
	userID, _ := c.Get(ContextUserID).(string)
	role, _ := c.Get(ContextUserRole).(models.Role)
	if userID != "" && role == "" {
		role = models.RoleUser
	}
	return models.Requester{UserID: userID, Role: role}
}
