// Package payments is the payment adapter: a gateway capability with a mock
// variant for development and a GoPay variant for real payments.
package payments

import (
	"context"
	"fmt"
	"net/url"

	"taxi-booking/internal/models"
)

// Gateway creates payment sessions and reports their state.
type Gateway interface {
	CreateSession(ctx context.Context, req models.PaymentRequest) (*models.PaymentInfo, error)
	GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error)
	VerifyCallback(body []byte, signature string) bool
	// Mock reports whether sessions are simulated.
	Mock() bool
}

// ResultURL is the local page the payer lands on after a payment attempt.
func ResultURL(clientOrigin, orderID string, mock bool) string {
	q := url.Values{}
	q.Set("orderId", orderID)
	if mock {
		q.Set("mockPayment", "true")
	}
	return fmt.Sprintf("%s/payment-result?%s", clientOrigin, q.Encode())
}

// MapGatewayState normalizes a GoPay payment state.
func MapGatewayState(state string) models.PaymentStatus {
	switch state {
	case "CREATED":
		return models.PaymentStatusCreated
	case "PAYMENT_METHOD_CHOSEN", "AUTHORIZED":
		return models.PaymentStatusPending
	case "PAID":
		return models.PaymentStatusPaid
	case "CANCELED":
		return models.PaymentStatusCanceled
	case "TIMEOUTED":
		return models.PaymentStatusTimedOut
	case "REFUNDED", "PARTIALLY_REFUNDED":
		return models.PaymentStatusRefunded
	}
	// Callbacks from the mock carry already-normalized states.
	if s := models.PaymentStatus(state); s.Valid() {
		return s
	}
	return models.PaymentStatusUnknown
}
