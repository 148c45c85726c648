package booking

import (
	"net/http"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new booking handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// routeFailure is returned when routing failed; the draft carries the
// recorded error so the client can stay on the address step.
type routeFailure struct {
	Message string               `json:"message"`
	Draft   *models.BookingDraft `json:"draft"`
}

// CreateDraft handles POST /api/bookings.
func (h *Handler) CreateDraft(c echo.Context) error {
	return utils.RespondWithJSON(c, http.StatusCreated, h.service.Create())
}

// GetDraft handles GET /api/bookings/:id.
func (h *Handler) GetDraft(c echo.Context) error {
	draft, err := h.service.Get(c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, draft)
}

// Suggest handles GET /api/bookings/:id/suggest/:which?q=
func (h *Handler) Suggest(c echo.Context) error {
	res, err := h.service.Suggest(c.Request().Context(), c.Param("id"), c.Param("which"), c.QueryParam("q"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, res)
}

// SetEndpoint handles PUT /api/bookings/:id/endpoints/:which.
func (h *Handler) SetEndpoint(c echo.Context) error {
	var in models.EndpointInput
	if err := c.Bind(&in); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	draft, err := h.service.SetEndpoint(c.Request().Context(), c.Param("id"), c.Param("which"), in)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, draft)
}

// ComputeRoute handles POST /api/bookings/:id/route.
func (h *Handler) ComputeRoute(c echo.Context) error {
	draft, err := h.service.ComputeRoute(c.Request().Context(), c.Param("id"))
	if err != nil {
		if draft != nil {
			c.Logger().Warnf("Route for booking %s failed: %v", draft.ID, err)
			return c.JSON(http.StatusUnprocessableEntity, routeFailure{Message: draft.RouteError, Draft: draft})
		}
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, draft)
}

// SetDetails handles PUT /api/bookings/:id/details.
func (h *Handler) SetDetails(c echo.Context) error {
	var details models.CustomerDetails
	if err := c.Bind(&details); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	draft, err := h.service.SetDetails(c.Param("id"), details)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, draft)
}

// Summary handles GET /api/bookings/:id/summary.
func (h *Handler) Summary(c echo.Context) error {
	summary, err := h.service.Summary(c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, summary)
}

// Submit handles POST /api/bookings/:id/submit. A session is optional.
func (h *Handler) Submit(c echo.Context) error {
	res, err := h.service.Submit(c.Request().Context(), c.Param("id"), utils.RequesterFromContext(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, res)
}
