package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the callback signature.
const SignatureHeader = "x-gopay-signature"

// PaymentStatusUpdater is the part of the order store the callback writes to.
type PaymentStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, orderID, paymentID string, status models.PaymentStatus) error
}

// CallbackHandler receives gateway notifications.
type CallbackHandler struct {
	gateway Gateway
	orders  PaymentStatusUpdater
}

func NewCallbackHandler(gateway Gateway, orders PaymentStatusUpdater) *CallbackHandler {
	return &CallbackHandler{gateway: gateway, orders: orders}
}

type callbackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HandleCallback handles POST /api/gopay-callback.
func (h *CallbackHandler) HandleCallback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, callbackResponse{Error: "Unreadable body"})
	}

	if !h.gateway.VerifyCallback(body, c.Request().Header.Get(SignatureHeader)) {
		c.Logger().Warn("Payment callback rejected: invalid signature")
		return c.JSON(http.StatusUnauthorized, callbackResponse{Error: "Invalid signature"})
	}

	var cb models.PaymentCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return c.JSON(http.StatusBadRequest, callbackResponse{Error: "Invalid request body"})
	}
	if err := utils.GetValidator().Validate(cb); err != nil {
		return c.JSON(http.StatusBadRequest, callbackResponse{Error: err.Error()})
	}

	status := MapGatewayState(cb.State)
	if err := h.orders.UpdatePaymentStatus(c.Request().Context(), cb.OrderNumber, cb.PaymentID, status); err != nil {
		// Unknown or foreign payments are dropped here. The gateway only needs
		// an acknowledgement; the next poll repairs the state.
		c.Logger().Errorf("Payment callback for order %s (payment %s): %v", cb.OrderNumber, cb.PaymentID, err)
	}

	return c.JSON(http.StatusOK, callbackResponse{Success: true})
}
