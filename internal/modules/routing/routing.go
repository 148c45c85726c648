// Package routing computes driving distance between two points and prices it.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxi-booking/internal/models"
)

// RouteServiceInterface computes a route between two points.
type RouteServiceInterface interface {
	Route(ctx context.Context, from, to models.Point) (*models.Route, error)
}

// OSRMService implements RouteServiceInterface against an OSRM-compatible
// routing API.
type OSRMService struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMService creates a new service instance.
func NewOSRMService(baseURL string) *OSRMService {
	return &OSRMService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// osrmRouteResponse is the part of the OSRM route response we care about.
type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Route returns the distance and duration of the first driving route.
// OSRM expects lon,lat order.
func (s *OSRMService) Route(ctx context.Context, from, to models.Point) (*models.Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		s.baseURL, from.Lon(), from.Lat(), to.Lon(), to.Lat())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("service.Route build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service.Route call router: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("service.Route read body: %w", err)
	}

	var directions osrmRouteResponse
	if err := json.Unmarshal(body, &directions); err != nil {
		return nil, fmt.Errorf("service.Route unmarshal (status %d): %w", resp.StatusCode, err)
	}

	// OSRM answers 400 with code NoRoute/NoSegment when the points cannot be connected.
	if directions.Code != "Ok" || len(directions.Routes) == 0 {
		if directions.Code == "NoRoute" || directions.Code == "NoSegment" || (directions.Code == "Ok" && len(directions.Routes) == 0) {
			return nil, fmt.Errorf("service.Route: %w", models.ErrRouteNotFound)
		}
		return nil, fmt.Errorf("service.Route: router returned %d %s %s", resp.StatusCode, directions.Code, directions.Message)
	}

	return &models.Route{
		DistanceMeters:  directions.Routes[0].Distance,
		DurationSeconds: directions.Routes[0].Duration,
	}, nil
}
