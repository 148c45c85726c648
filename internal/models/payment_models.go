package models

import "time"

// PaymentStatus is the normalized state of a payment session.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusCanceled PaymentStatus = "canceled"
	PaymentStatusTimedOut PaymentStatus = "timed-out"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusUnknown  PaymentStatus = "unknown"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusCreated, PaymentStatusPending, PaymentStatusPaid, PaymentStatusCanceled,
		PaymentStatusTimedOut, PaymentStatusRefunded, PaymentStatusFailed, PaymentStatusUnknown:
		return true
	}
	return false
}

// PaymentRequest describes what a payment session is for.
type PaymentRequest struct {
	OrderID       string
	Amount        int // whole currency units
	Currency      string
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// PaymentInfo is a payment session. It is never stored on its own; the
// order keeps ID, Status and RedirectURL in its payment_* columns.
type PaymentInfo struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	Amount      int           `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	RedirectURL string        `json:"redirect_url"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PaymentCallback is the body the gateway posts on a state change.
type PaymentCallback struct {
	OrderNumber string `json:"order_number" validate:"required"`
	PaymentID   string `json:"payment_id" validate:"required"`
	State       string `json:"state" validate:"required"`
}
