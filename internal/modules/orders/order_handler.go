package orders

import (
	"net/http"
	"strconv"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new order handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreateOrder handles POST /api/orders. A session is optional.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Validation failed: "+err.Error())
	}

	result, err := h.service.Create(c.Request().Context(), utils.RequesterFromContext(c), req)
	if err != nil {
		c.Logger().Error("Handler.CreateOrder: ", err)
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, result)
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c echo.Context) error {
	list, err := h.service.ListFor(c.Request().Context(), utils.RequesterFromContext(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, list)
}

// GetOrder handles GET /api/orders/:orderId.
func (h *Handler) GetOrder(c echo.Context) error {
	order, err := h.service.GetForRequester(c.Request().Context(), utils.RequesterFromContext(c), c.Param("orderId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, order)
}

// PaymentResult handles GET /api/payment-result?orderId=&mockPayment=
// It polls the gateway once and reports the stored outcome.
func (h *Handler) PaymentResult(c echo.Context) error {
	orderID := c.QueryParam("orderId")
	if orderID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "orderId is required")
	}

	result, err := h.service.PollPayment(c.Request().Context(), orderID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if mock, perr := strconv.ParseBool(c.QueryParam("mockPayment")); perr == nil && mock {
		result.Mock = true
	}
	return utils.RespondWithJSON(c, http.StatusOK, result)
}

// --- Admin ---

// AdminListOrders handles GET /admin/orders.
func (h *Handler) AdminListOrders(c echo.Context) error {
	var filter models.OrderFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
	}

	list, err := h.service.AdminList(c.Request().Context(), filter)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, list)
}

// AdminGetOrder handles GET /admin/orders/:orderId.
func (h *Handler) AdminGetOrder(c echo.Context) error {
	order, err := h.service.GetByID(c.Request().Context(), c.Param("orderId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, order)
}

// AdminUpdateStatus handles PUT /admin/orders/:orderId/status.
func (h *Handler) AdminUpdateStatus(c echo.Context) error {
	var req models.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Validation failed: "+err.Error())
	}

	order, err := h.service.UpdateStatus(c.Request().Context(), c.Param("orderId"), req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, order)
}

// AdminDeleteOrder handles DELETE /admin/orders/:orderId.
func (h *Handler) AdminDeleteOrder(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("orderId")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
