package routing

import (
	"context"
	"fmt"

	"taxi-booking/internal/models"
	"taxi-booking/internal/modules/geocoding"

	"golang.org/x/sync/errgroup"
)

// QuoterInterface turns two endpoints into a priced route.
type QuoterInterface interface {
	Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
}

// Quoter resolves endpoints, routes between them and prices the route.
type Quoter struct {
	geocoder  geocoding.ServiceInterface
	router    RouteServiceInterface
	ratePerKm float64
	currency  string
}

func NewQuoter(geocoder geocoding.ServiceInterface, router RouteServiceInterface, ratePerKm float64, currency string) *Quoter {
	return &Quoter{geocoder: geocoder, router: router, ratePerKm: ratePerKm, currency: currency}
}

// Quote geocodes whichever endpoint has no coordinates (both concurrently
// when neither has), computes the route and derives the price.
func (q *Quoter) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	quote := &models.Quote{
		StartAddress: req.StartAddress,
		EndAddress:   req.EndAddress,
		Currency:     q.currency,
	}

	g, gctx := errgroup.WithContext(ctx)
	resolve := func(address string, known *models.Point, dst *models.Point) {
		if known != nil {
			*dst = *known
			return
		}
		g.Go(func() error {
			place, err := q.geocoder.Geocode(gctx, address)
			if err != nil {
				return err
			}
			*dst = place.Point
			return nil
		})
	}
	resolve(req.StartAddress, req.StartPoint, &quote.StartPoint)
	resolve(req.EndAddress, req.EndPoint, &quote.EndPoint)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service.Quote geocode: %w", err)
	}

	route, err := q.router.Route(ctx, quote.StartPoint, quote.EndPoint)
	if err != nil {
		return nil, fmt.Errorf("service.Quote: %w", err)
	}

	price, err := Price(route.DistanceMeters, q.ratePerKm)
	if err != nil {
		return nil, fmt.Errorf("service.Quote: %w", err)
	}
	quote.Distance = route.DistanceMeters
	quote.DurationSeconds = route.DurationSeconds
	quote.Price = price
	return quote, nil
}
