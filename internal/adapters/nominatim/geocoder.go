package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geoscout/internal/core/domain"
	"geoscout/internal/pkg/geospatial"
	"geoscout/internal/pkg/metrics"
)

// fallbackRadiusMeters sizes the region for candidates that come back
// without a usable bounding box.
const fallbackRadiusMeters = 2000

// Geocoder resolves place names against a Nominatim /search endpoint.
type Geocoder struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// New creates a Geocoder. Nominatim's usage policy requires an
// identifying User-Agent on every request.
func New(endpoint, userAgent string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// candidate is one /search result. Coordinates and the bounding box
// arrive as decimal strings.
type candidate struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// Resolve implements ports.Geocoder. It requests the single best-ranked
// candidate and never disambiguates between matches.
func (g *Geocoder) Resolve(ctx context.Context, place string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", g.endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrGeocodeTransport, err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrGeocodeTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeocodeTransport, resp.StatusCode)
	}
	metrics.UpstreamRequests.WithLabelValues("nominatim", "ok").Inc()

	var candidates []candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrGeocodeTransport, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, place)
	}

	return toPlace(candidates[0], place)
}

func toPlace(c candidate, place string) (*domain.Place, error) {
	lat, latErr := strconv.ParseFloat(c.Lat, 64)
	lon, lonErr := strconv.ParseFloat(c.Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("%w: candidate for %q has no usable coordinates", domain.ErrGeocodeTransport, place)
	}

	var region domain.Bounds
	if len(c.BoundingBox) == 0 {
		region = pointRegion(lat, lon)
	} else {
		parsed, err := parseBoundingBox(c.BoundingBox)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGeocodeTransport, err)
		}
		region = parsed
	}
	// Point-sized boxes (single-node candidates) collapse to the same
	// fallback so the region invariant holds.
	if region.LatSpan() <= 0 || region.LonSpan() <= 0 {
		region = pointRegion(lat, lon)
	}

	name := c.DisplayName
	if name == "" {
		name = place
	}
	return &domain.Place{
		Name:   name,
		Center: domain.GeoPoint{Lat: lat, Lon: lon},
		Region: region,
	}, nil
}

// parseBoundingBox interprets Nominatim's four decimal strings: two
// latitudes then two longitudes. The order inside each pair is not
// trusted; each pair is sorted instead.
func parseBoundingBox(bb []string) (domain.Bounds, error) {
	if len(bb) < 4 {
		return domain.Bounds{}, fmt.Errorf("bounding box has %d components, want 4", len(bb))
	}
	vals := make([]float64, 4)
	for i, s := range bb[:4] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("bounding box component %q is not numeric", s)
		}
		vals[i] = v
	}
	return domain.Bounds{
		MinLat: math.Min(vals[0], vals[1]),
		MaxLat: math.Max(vals[0], vals[1]),
		MinLon: math.Min(vals[2], vals[3]),
		MaxLon: math.Max(vals[2], vals[3]),
	}, nil
}

func pointRegion(lat, lon float64) domain.Bounds {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, fallbackRadiusMeters)
	return domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}
