// Package booking drives a customer through the booking flow: pick both
// addresses, compute the route and price, enter contact details, confirm
// and submit the order.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxi-booking/internal/models"
	"taxi-booking/internal/modules/geocoding"
	"taxi-booking/internal/modules/routing"
	"taxi-booking/pkg/utils"
)

// OrderCreator is the part of the order store a submitted booking uses.
type OrderCreator interface {
	Create(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.CreateOrderResult, error)
}

// ServiceInterface defines the booking flow operations.
type ServiceInterface interface {
	Create() *models.BookingDraft
	Get(id string) (*models.BookingDraft, error)
	Suggest(ctx context.Context, id, which, query string) (*models.Suggestions, error)
	SetEndpoint(ctx context.Context, id, which string, in models.EndpointInput) (*models.BookingDraft, error)
	ComputeRoute(ctx context.Context, id string) (*models.BookingDraft, error)
	SetDetails(id string, details models.CustomerDetails) (*models.BookingDraft, error)
	Summary(id string) (*models.BookingSummary, error)
	Submit(ctx context.Context, id string, requester models.Requester) (*models.BookingSubmitResult, error)
}

// Service implements ServiceInterface on an in-memory draft store.
type Service struct {
	store    *draftStore
	geocoder geocoding.ServiceInterface
	quoter   routing.QuoterInterface
	orders   OrderCreator
}

// NewService creates a booking service. Drafts expire ttl after their last change.
func NewService(geocoder geocoding.ServiceInterface, quoter routing.QuoterInterface, orders OrderCreator, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{
		store:    newDraftStore(ttl),
		geocoder: geocoder,
		quoter:   quoter,
		orders:   orders,
	}
}

func endpointOf(d *models.BookingDraft, which string) (*models.Endpoint, error) {
	switch which {
	case models.EndpointStart:
		return &d.Start, nil
	case models.EndpointEnd:
		return &d.End, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrInvalidEndpoint, which)
}

func (s *Service) Create() *models.BookingDraft {
	return s.store.create()
}

func (s *Service) Get(id string) (*models.BookingDraft, error) {
	return s.store.get(id)
}

// Suggest searches addresses for one endpoint box. Only the most recent
// search per endpoint is stored; an older search finishing later comes back
// flagged stale.
func (s *Service) Suggest(ctx context.Context, id, which, query string) (*models.Suggestions, error) {
	var seq uint64
	_, err := s.store.update(id, func(e *draftEntry) error {
		if _, err := endpointOf(e.draft, which); err != nil {
			return err
		}
		e.seq[which]++
		seq = e.seq[which]
		return nil
	})
	if err != nil {
		return nil, err
	}

	places, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service.Suggest: %w", err)
	}
	if places == nil {
		places = []models.Place{}
	}

	result := &models.Suggestions{Endpoint: which, Query: query, Seq: seq, Places: places}
	_, err = s.store.update(id, func(e *draftEntry) error {
		if e.seq[which] != seq {
			result.Stale = true
			return nil
		}
		ep, _ := endpointOf(e.draft, which)
		ep.Suggestions = places
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetEndpoint stores an address for one end of the trip. Addresses from a
// suggestion or a map pick are confirmed; typed text is not. Any change
// drops the computed route and returns the draft to the address step.
func (s *Service) SetEndpoint(ctx context.Context, id, which string, in models.EndpointInput) (*models.BookingDraft, error) {
	if err := utils.GetValidator().Validate(in); err != nil {
		return nil, err
	}
	if which != models.EndpointStart && which != models.EndpointEnd {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidEndpoint, which)
	}

	ep := models.Endpoint{Address: strings.TrimSpace(in.Address), Source: in.Source}
	switch in.Source {
	case models.SourceSuggestion, models.SourceMap:
		if in.Lat == nil || in.Lon == nil {
			return nil, fmt.Errorf("%w: %s source needs coordinates", models.ErrInvalidEndpoint, in.Source)
		}
		p := models.NewPoint(*in.Lat, *in.Lon)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: coordinates out of range", models.ErrInvalidEndpoint)
		}
		ep.Point = p
		ep.Confirmed = true
	case models.SourceTyped:
		if ep.Address == "" {
			return nil, fmt.Errorf("%w: typed address is empty", models.ErrInvalidEndpoint)
		}
	}

	if ep.Address == "" && ep.Point != nil {
		// A map pick without a label takes the nearest known address.
		place, err := s.geocoder.Reverse(ctx, *ep.Point)
		if err != nil {
			return nil, fmt.Errorf("service.SetEndpoint: %w", err)
		}
		ep.Address = place.DisplayName
	}
	if ep.Source == models.SourceSuggestion && ep.Address == "" {
		return nil, fmt.Errorf("%w: suggestion without address", models.ErrInvalidEndpoint)
	}

	return s.store.update(id, func(e *draftEntry) error {
		if e.draft.Step == models.BookingStepSubmitted || e.submitting {
			return models.ErrInvalidStep
		}
		target, _ := endpointOf(e.draft, which)
		ep.Suggestions = target.Suggestions
		*target = ep
		e.draft.Quote = nil
		e.draft.RouteError = ""
		e.draft.Step = models.BookingStepAddresses
		return nil
	})
}

// ComputeRoute quotes the trip between the confirmed endpoints. A routing
// failure is recorded on the draft and returned; the draft stays at the
// address step.
func (s *Service) ComputeRoute(ctx context.Context, id string) (*models.BookingDraft, error) {
	draft, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	if draft.Step == models.BookingStepSubmitted {
		return nil, models.ErrInvalidStep
	}
	if !draft.Start.Confirmed || !draft.End.Confirmed {
		return nil, models.ErrEndpointsNotConfirmed
	}

	start, end := draft.Start, draft.End
	quote, qerr := s.quoter.Quote(ctx, models.QuoteRequest{
		StartAddress: start.Address,
		EndAddress:   end.Address,
		StartPoint:   start.Point,
		EndPoint:     end.Point,
	})

	updated, err := s.store.update(id, func(e *draftEntry) error {
		if e.draft.Step == models.BookingStepSubmitted || e.submitting {
			return models.ErrInvalidStep
		}
		// The endpoints moved while the route was computed; the result is for old points.
		if !samePoint(e.draft.Start.Point, start.Point) || !samePoint(e.draft.End.Point, end.Point) {
			return models.ErrEndpointsNotConfirmed
		}
		if qerr != nil {
			e.draft.Quote = nil
			e.draft.RouteError = qerr.Error()
			e.draft.Step = models.BookingStepAddresses
			return nil
		}
		e.draft.Quote = quote
		e.draft.RouteError = ""
		e.draft.Step = models.BookingStepDetails
		return nil
	})
	if err != nil {
		return nil, err
	}
	if qerr != nil {
		return updated, fmt.Errorf("service.ComputeRoute: %w", qerr)
	}
	return updated, nil
}

func samePoint(a, b *models.Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SetDetails stores the customer's contact details once a route exists.
func (s *Service) SetDetails(id string, details models.CustomerDetails) (*models.BookingDraft, error) {
	details.CustomerName = strings.TrimSpace(details.CustomerName)
	details.CustomerEmail = strings.TrimSpace(details.CustomerEmail)
	details.CustomerPhone = strings.TrimSpace(details.CustomerPhone)
	if err := utils.GetValidator().Validate(details); err != nil {
		return nil, err
	}

	return s.store.update(id, func(e *draftEntry) error {
		switch e.draft.Step {
		case models.BookingStepDetails, models.BookingStepPayment:
		default:
			return models.ErrInvalidStep
		}
		if e.submitting {
			return models.ErrInvalidStep
		}
		d := details
		e.draft.Details = &d
		e.draft.Step = models.BookingStepPayment
		return nil
	})
}

// Summary returns what the customer is about to pay for.
func (s *Service) Summary(id string) (*models.BookingSummary, error) {
	draft, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	if draft.Step != models.BookingStepPayment && draft.Step != models.BookingStepSubmitted {
		return nil, models.ErrInvalidStep
	}
	return &models.BookingSummary{
		StartAddress:    draft.Start.Address,
		EndAddress:      draft.End.Address,
		Distance:        draft.Quote.Distance,
		DurationSeconds: draft.Quote.DurationSeconds,
		Price:           draft.Quote.Price,
		Currency:        draft.Quote.Currency,
		Customer:        *draft.Details,
	}, nil
}

// Submit turns the draft into an order. A draft can be submitted once.
func (s *Service) Submit(ctx context.Context, id string, requester models.Requester) (*models.BookingSubmitResult, error) {
	draft, err := s.store.update(id, func(e *draftEntry) error {
		if e.draft.Step != models.BookingStepPayment || e.submitting {
			return models.ErrInvalidStep
		}
		e.submitting = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, cerr := s.orders.Create(ctx, requester, models.CreateOrderRequest{
		CustomerDetails: *draft.Details,
		StartAddress:    draft.Start.Address,
		EndAddress:      draft.End.Address,
		StartPoint:      draft.Start.Point,
		EndPoint:        draft.End.Point,
		Distance:        draft.Quote.Distance,
	})

	// The order exists even if the draft expired meanwhile, so a failed
	// bookkeeping update does not fail the submit.
	_, _ = s.store.update(id, func(e *draftEntry) error {
		e.submitting = false
		if cerr != nil {
			return nil
		}
		e.draft.Step = models.BookingStepSubmitted
		e.draft.OrderID = res.OrderID
		e.draft.PaymentURL = res.PaymentURL
		return nil
	})
	if cerr != nil {
		return nil, fmt.Errorf("service.Submit: %w", cerr)
	}
	return &models.BookingSubmitResult{OrderID: res.OrderID, PaymentURL: res.PaymentURL}, nil
}
