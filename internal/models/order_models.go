package models

import "time"

// OrderStatus is the lifecycle state of a booking.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a taxi booking.
type Order struct {
	ID              string      `json:"id"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	PickupDate      string      `json:"pickup_date"`
	PickupTime      string      `json:"pickup_time"`
	StartAddress    string      `json:"start_address"`
	EndAddress      string      `json:"end_address"`
	StartPoint      *Point      `json:"start_point,omitempty"`
	EndPoint        *Point      `json:"end_point,omitempty"`
	Distance        float64     `json:"distance"` // meters
	Price           int         `json:"price"`
	AdditionalNotes *string     `json:"additional_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Status          OrderStatus `json:"status"`
	UserID          *string     `json:"user_id,omitempty"`
	PaymentID       *string     `json:"payment_id,omitempty"`
	PaymentStatus   *string     `json:"payment_status,omitempty"`
	PaymentURL      *string     `json:"payment_url,omitempty"`
}

// HasPayment reports whether a payment session was created for the order.
func (o *Order) HasPayment() bool {
	return o.PaymentID != nil && *o.PaymentID != ""
}

// Clone returns a copy that shares no pointers with o.
func (o *Order) Clone() *Order {
	c := *o
	c.StartPoint = o.StartPoint.clone()
	c.EndPoint = o.EndPoint.clone()
	c.AdditionalNotes = cloneString(o.AdditionalNotes)
	c.UserID = cloneString(o.UserID)
	c.PaymentID = cloneString(o.PaymentID)
	c.PaymentStatus = cloneString(o.PaymentStatus)
	c.PaymentURL = cloneString(o.PaymentURL)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// CustomerDetails is the customer part of a booking.
type CustomerDetails struct {
	CustomerName    string `json:"customer_name" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerPhone   string `json:"customer_phone" validate:"required,phone"`
	PickupDate      string `json:"pickup_date" validate:"required"`
	PickupTime      string `json:"pickup_time" validate:"required"`
	AdditionalNotes string `json:"additional_notes,omitempty"`
}

// CreateOrderRequest carries everything needed to persist a booking.
// Price is always derived on the server; when a router is configured the
// distance is re-derived from the points as well.
type CreateOrderRequest struct {
	CustomerDetails
	StartAddress string  `json:"start_address" validate:"required"`
	EndAddress   string  `json:"end_address" validate:"required"`
	StartPoint   *Point  `json:"start_point" validate:"required"`
	EndPoint     *Point  `json:"end_point" validate:"required"`
	Distance     float64 `json:"distance" validate:"gte=0,lte=2000000"`
}

// CreateOrderResult is returned once an order is persisted.
type CreateOrderResult struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Order      *Order `json:"order"`
}

// UpdateOrderStatusRequest is the admin status change body.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,order_status"`
}

// OrderFilter narrows and orders the admin order list.
type OrderFilter struct {
	Status     OrderStatus `query:"status"`
	Query      string      `query:"q"`
	PickupDate string      `query:"pickup_date"`
	Sort       string      `query:"sort"`
	Dir        string      `query:"dir"`
	Refresh    bool        `query:"refresh"`
}

// PaymentResult is the outcome of a single payment-status poll.
type PaymentResult struct {
	OrderID       string        `json:"order_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	Mock          bool          `json:"mock"`
}
