package routing

import (
	"math"

	"taxi-booking/internal/models"
)

const (
	// DefaultRatePerKm is the fixed fare per kilometre.
	DefaultRatePerKm = 20

	// MaxDistanceMeters is the longest trip that is priced.
	MaxDistanceMeters = 2_000_000
)

// Price returns round(distance_km × ratePerKm) in whole currency units.
// Negative distances price as zero. Distances beyond MaxDistanceMeters, or
// a fare that does not fit the orders.price column, are rejected.
func Price(distanceMeters, ratePerKm float64) (int, error) {
	if math.IsNaN(distanceMeters) || math.IsNaN(ratePerKm) || distanceMeters > MaxDistanceMeters {
		return 0, models.ErrDistanceOutOfRange
	}
	if distanceMeters <= 0 {
		return 0, nil
	}
	price := math.Round(distanceMeters / 1000 * ratePerKm)
	if price > math.MaxInt32 || price < 0 {
		return 0, models.ErrDistanceOutOfRange
	}
	return int(price), nil
}
