package geocoding

import (
	"net/http"
	"strconv"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler exposes address search and reverse geocoding.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/geocode/search?q=
func (h *Handler) Search(c echo.Context) error {
	places, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		c.Logger().Error("Handler.Search: ", err)
		return utils.RespondWithError(c, http.StatusBadGateway, "Address search failed")
	}
	return utils.RespondWithJSON(c, http.StatusOK, places)
}

// Reverse handles GET /api/geocode/reverse?lat=&lon=
func (h *Handler) Reverse(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	point := models.Point{lat, lon}
	if errLat != nil || errLon != nil || !point.Valid() {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid coordinates")
	}

	place, err := h.svc.Reverse(c.Request().Context(), point)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, place)
}
