// Package geocoding translates free-text addresses to coordinates and back
// through a Nominatim-compatible HTTP API.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taxi-booking/internal/models"
)

// ServiceInterface is the geocoding adapter contract.
type ServiceInterface interface {
	Search(ctx context.Context, query string) ([]models.Place, error)
	Geocode(ctx context.Context, address string) (*models.Place, error)
	Reverse(ctx context.Context, point models.Point) (*models.Place, error)
}

// Nominatim implements ServiceInterface against a Nominatim instance.
type Nominatim struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// NewNominatim creates a client for baseURL. limit caps the number of
// search suggestions.
func NewNominatim(baseURL, userAgent string, limit int) *Nominatim {
	if limit <= 0 {
		limit = 5
	}
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      limit,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// nominatimPlace is the subset of a Nominatim result we use. Coordinates
// arrive as strings.
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error,omitempty"`
}

func (p nominatimPlace) toPlace() (models.Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return models.Place{DisplayName: p.DisplayName, Point: models.Point{lat, lon}}, nil
}

// Search returns up to limit suggestions for query. A blank query returns
// no suggestions without calling the service.
func (n *Nominatim) Search(ctx context.Context, query string) ([]models.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Place{}, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(n.limit))

	var raw []nominatimPlace
	if err := n.get(ctx, "/search", params, &raw); err != nil {
		return nil, fmt.Errorf("geocoding.Search: %w", err)
	}

	places := make([]models.Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			return nil, fmt.Errorf("geocoding.Search: %w", err)
		}
		places = append(places, p)
	}
	return places, nil
}

// Geocode resolves address to its best match.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*models.Place, error) {
	places, err := n.Search(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("geocoding.Geocode %q: %w", address, models.ErrAddressNotFound)
	}
	return &places[0], nil
}

// Reverse resolves coordinates to an address.
func (n *Nominatim) Reverse(ctx context.Context, point models.Point) (*models.Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(point.Lat(), 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(point.Lon(), 'f', -1, 64))

	var raw nominatimPlace
	if err := n.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, fmt.Errorf("geocoding.Reverse: %w", err)
	}
	if raw.Error != "" || raw.DisplayName == "" {
		return nil, fmt.Errorf("geocoding.Reverse %s: %w", point, models.ErrAddressNotFound)
	}
	return &models.Place{DisplayName: raw.DisplayName, Point: point}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call geocoder: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
