package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/osoko/wayfind/internal/core/domain"
)

// Client implements ports.RouteClient against an OSRM HTTP server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// New creates a routing client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route computes a driving route. The human-readable texts and the arrival
// estimate are fixed here, at response time, and never recomputed.
func (c *Client) Route(ctx context.Context, from, to domain.Coordinate) (domain.RouteFragment, error) {
	// OSRM takes lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.RouteFragment{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RouteFragment{}, fmt.Errorf("%w: %v", domain.ErrRoute, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.RouteFragment{}, fmt.Errorf("%w: read: %v", domain.ErrRoute, err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.RouteFragment{}, fmt.Errorf("%w: unparseable response", domain.ErrRoute)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return domain.RouteFragment{}, fmt.Errorf("%w: no route (code %s)", domain.ErrRoute, parsed.Code)
	}

	route := parsed.Routes[0]
	geometry := make([]domain.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		geometry = append(geometry, domain.Coordinate{Lat: pair[1], Lng: pair[0]})
	}

	return domain.RouteFragment{
		Geometry:         geometry,
		DistanceMeters:   route.Distance,
		DurationSeconds:  route.Duration,
		DistanceText:     FormatDistance(route.Distance),
		DurationText:     FormatDuration(route.Duration),
		EstimatedArrival: c.now().Add(time.Duration(route.Duration * float64(time.Second))),
	}, nil
}

// FormatDistance renders meters the way a navigation UI shows them.
func FormatDistance(meters float64) string {
	if math.Round(meters) < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as minutes, with hours past the hour mark.
func FormatDuration(seconds float64) string {
	minutes := int(math.Round(seconds / 60))
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%d h", minutes/60)
	}
	return fmt.Sprintf("%d h %d min", minutes/60, minutes%60)
}
