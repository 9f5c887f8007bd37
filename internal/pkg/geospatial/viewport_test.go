package geospatial_test

import (
	"testing"

	"geoscout/internal/pkg/geospatial"
)

func TestZoomFor_Ladder(t *testing.T) {
	// Latitude-driven spans at the equator (zero lon span) so the
	// foreshortening adjustment stays out of the way.
	cases := []struct {
		span float64
		want int
	}{
		{0.0005, 18},
		{0.001, 18},
		{0.002, 16},
		{0.01, 16},
		{0.05, 13},
		{0.1, 13},
		{0.5, 10},
		{1, 10},
		{3, 8},
		{5, 8},
		{7, 6},
		{10, 6},
		{11, 4},
		{40, 4},
	}
	for _, tc := range cases {
		got := geospatial.ZoomFor(0, 10, tc.span, 10)
		if got != tc.want {
			t.Errorf("ZoomFor(span=%g): expected zoom %d, got %d", tc.span, tc.want, got)
		}
	}
}

func TestZoomFor_MonotonicallyNonIncreasing(t *testing.T) {
	spans := []float64{0.0001, 0.001, 0.005, 0.01, 0.02, 0.1, 0.3, 1, 2, 5, 8, 10, 15, 60}
	prev := 19
	for _, span := range spans {
		z := geospatial.ZoomFor(0, 10, span, 10)
		if z > prev {
			t.Fatalf("zoom increased from %d to %d at span %g", prev, z, span)
		}
		prev = z
	}
}

func TestZoomFor_ForeshorteningWidensLonSpan(t *testing.T) {
	// 1° of longitude at 60°N covers half the ground distance it does
	// at the equator, so the adjusted span doubles and the zoom drops.
	atEquator := geospatial.ZoomFor(-0.02, -0.45, 0.02, 0.45)
	atSixty := geospatial.ZoomFor(59.98, -0.45, 60.02, 0.45)
	if atSixty >= atEquator {
		t.Errorf("expected a lower zoom at 60N (got %d) than at the equator (got %d)", atSixty, atEquator)
	}
}

func TestZoomFor_PolarCosineGuard(t *testing.T) {
	// At a mean latitude of 90 the cosine underflows; the raw lon span
	// must be used instead of a division blow-up.
	got := geospatial.ZoomFor(90, -0.0004, 90, 0.0004)
	if got != 18 {
		t.Errorf("expected raw span to be used at the pole, got zoom %d", got)
	}
}

func TestZoomFor_CityScale(t *testing.T) {
	// A Bordeaux-sized bounding box sits in the middle of the ladder.
	got := geospatial.ZoomFor(44.81, -0.64, 44.92, -0.53)
	if got != 10 {
		t.Errorf("expected zoom 10 for a city-scale region, got %d", got)
	}
}

func TestBoundingBox_ContainsCenter(t *testing.T) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(43.263, -2.935, 500)
	if minLat >= 43.263 || maxLat <= 43.263 {
		t.Errorf("latitude range [%f, %f] does not contain the center", minLat, maxLat)
	}
	if minLon >= -2.935 || maxLon <= -2.935 {
		t.Errorf("longitude range [%f, %f] does not contain the center", minLon, maxLon)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Moyua is roughly 400m.
	d := geospatial.Haversine(43.2609, -2.9334, 43.2627, -2.9374)
	if d < 300 || d > 500 {
		t.Errorf("expected ~400m, got %f", d)
	}
}
