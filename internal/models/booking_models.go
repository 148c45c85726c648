package models

import "time"

// BookingStep is the position of a booking draft in the booking flow.
type BookingStep string

const (
	BookingStepAddresses BookingStep = "addresses"
	BookingStepDetails   BookingStep = "details"
	BookingStepPayment   BookingStep = "payment"
	BookingStepSubmitted BookingStep = "submitted"
)

// EndpointSource tells how an endpoint address was entered.
type EndpointSource string

const (
	SourceSuggestion EndpointSource = "suggestion"
	SourceMap        EndpointSource = "map"
	SourceTyped      EndpointSource = "typed"
)

// Endpoint names accepted in booking URLs.
const (
	EndpointStart = "start"
	EndpointEnd   = "end"
)

// Endpoint is one end of the trip. It is Confirmed once the address came
// from a suggestion or a map pick and has coordinates.
type Endpoint struct {
	Address     string         `json:"address"`
	Point       *Point         `json:"point,omitempty"`
	Source      EndpointSource `json:"source,omitempty"`
	Confirmed   bool           `json:"confirmed"`
	Suggestions []Place        `json:"suggestions,omitempty"`
}

func (e Endpoint) clone() Endpoint {
	c := e
	c.Point = e.Point.clone()
	if e.Suggestions != nil {
		c.Suggestions = append([]Place(nil), e.Suggestions...)
	}
	return c
}

// EndpointInput is the body of PUT /api/bookings/:id/endpoints/:which.
type EndpointInput struct {
	Address string         `json:"address"`
	Lat     *float64       `json:"lat"`
	Lon     *float64       `json:"lon"`
	Source  EndpointSource `json:"source" validate:"required,oneof=suggestion map typed"`
}

// BookingDraft is the server-side state of one customer's booking flow.
type BookingDraft struct {
	ID         string           `json:"id"`
	Step       BookingStep      `json:"step"`
	Start      Endpoint         `json:"start"`
	End        Endpoint         `json:"end"`
	Quote      *Quote           `json:"quote,omitempty"`
	RouteError string           `json:"route_error,omitempty"`
	Details    *CustomerDetails `json:"details,omitempty"`
	OrderID    string           `json:"order_id,omitempty"`
	PaymentURL string           `json:"payment_url,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// Clone returns a copy that shares no pointers with d.
func (d *BookingDraft) Clone() *BookingDraft {
	c := *d
	c.Start = d.Start.clone()
	c.End = d.End.clone()
	if d.Quote != nil {
		q := *d.Quote
		c.Quote = &q
	}
	if d.Details != nil {
		det := *d.Details
		c.Details = &det
	}
	return &c
}

// Suggestions is the answer to one address-search call. Stale results were
// superseded by a later search for the same endpoint and were not stored.
type Suggestions struct {
	Endpoint string  `json:"endpoint"`
	Query    string  `json:"query"`
	Seq      uint64  `json:"seq"`
	Stale    bool    `json:"stale"`
	Places   []Place `json:"places"`
}

// BookingSummary is shown on the payment-confirmation step.
type BookingSummary struct {
	StartAddress    string          `json:"start_address"`
	EndAddress      string          `json:"end_address"`
	Distance        float64         `json:"distance"`
	DurationSeconds float64         `json:"duration"`
	Price           int             `json:"price"`
	Currency        string          `json:"currency"`
	Customer        CustomerDetails `json:"customer"`
}

// BookingSubmitResult is returned once the draft became an order.
type BookingSubmitResult struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}
