package routing

import (
	"net/http"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler exposes price quotes over HTTP.
type Handler struct {
	quoter QuoterInterface
}

// NewHandler constructs a new Handler.
func NewHandler(quoter QuoterInterface) *Handler {
	return &Handler{quoter: quoter}
}

// Quote handles POST /api/quote.
func (h *Handler) Quote(c echo.Context) error {
	var req models.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	quote, err := h.quoter.Quote(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, quote)
}
