package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the requester's role does not allow the operation.
	ErrForbidden = errors.New("access denied")

	ErrConflict           = errors.New("resource already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidStatus is returned for an order status outside the four known values.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrAddressNotFound is returned when geocoding yields no result.
	ErrAddressNotFound = errors.New("address not found")

	// ErrRouteNotFound is returned when the routing service finds no route between the endpoints.
	ErrRouteNotFound = errors.New("no route found between the given points")

	// ErrEndpointsNotConfirmed is returned when a route is requested before both
	// addresses were selected from a suggestion or picked on the map.
	ErrEndpointsNotConfirmed = errors.New("start and end address must both be confirmed")

	// ErrInvalidStep is returned when a booking action does not match the draft's current step.
	ErrInvalidStep = errors.New("booking is not at the required step")

	// ErrInvalidEndpoint is returned for a booking endpoint other than start or end,
	// or an endpoint input that lacks what its source requires.
	ErrInvalidEndpoint = errors.New("invalid booking endpoint")

	ErrPaymentUnavailable = errors.New("payment gateway unavailable")

	// ErrNoPaymentSession is returned when a payment status arrives for an
	// order that has no payment session.
	ErrNoPaymentSession = errors.New("order has no payment session")

	// ErrPaymentMismatch is returned when a payment status names a payment
	// other than the one stored on the order.
	ErrPaymentMismatch = errors.New("payment does not belong to the order")

	// ErrDistanceOutOfRange is returned for a trip distance that cannot be priced.
	ErrDistanceOutOfRange = errors.New("trip distance out of range")
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
