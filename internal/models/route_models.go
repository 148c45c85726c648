package models

import "fmt"

// Point is a [latitude, longitude] pair.
type Point [2]float64

// NewPoint builds a Point from latitude and longitude.
func NewPoint(lat, lon float64) *Point {
	return &Point{lat, lon}
}

func (p Point) Lat() float64 { return p[0] }
func (p Point) Lon() float64 { return p[1] }

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p[0] >= -90 && p[0] <= 90 && p[1] >= -180 && p[1] <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p[0], p[1])
}

func (p *Point) clone() *Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Place is a geocoding hit.
type Place struct {
	DisplayName string `json:"display_name"`
	Point       Point  `json:"point"`
}

// Route is the result of a routing call.
type Route struct {
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// QuoteRequest is the input for a price quote. Missing points are geocoded
// from the addresses.
type QuoteRequest struct {
	StartAddress string `json:"start_address" validate:"required_without=StartPoint"`
	EndAddress   string `json:"end_address" validate:"required_without=EndPoint"`
	StartPoint   *Point `json:"start_point,omitempty"`
	EndPoint     *Point `json:"end_point,omitempty"`
}

// Quote is a priced route between two resolved endpoints.
type Quote struct {
	StartAddress    string  `json:"start_address"`
	EndAddress      string  `json:"end_address"`
	StartPoint      Point   `json:"start_point"`
	EndPoint        Point   `json:"end_point"`
	Distance        float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
	Price           int     `json:"price"`
	Currency        string  `json:"currency"`
}
