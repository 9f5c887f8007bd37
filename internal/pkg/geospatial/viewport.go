package geospatial

import "math"

// ZoomFor maps a bounding region (south/west/north/east in degrees) to
// the discrete zoom level at which the region fits tightly in view.
// The longitudinal span is widened for spherical foreshortening at the
// region's mean latitude; when the cosine there vanishes or goes
// negative the raw span is used instead.
//
// The breakpoints below are the complete zoom policy: every derived
// viewport changes if they change.
func ZoomFor(south, west, north, east float64) int {
	latSpan := north - south
	lonSpan := east - west

	if c := math.Cos(toRad((south + north) / 2)); c > 1e-9 {
		lonSpan /= c
	}

	span := math.Max(latSpan, lonSpan)
	switch {
	case span <= 0.001:
		return 18
	case span <= 0.01:
		return 16
	case span <= 0.1:
		return 13
	case span <= 1:
		return 10
	case span <= 5:
		return 8
	case span <= 10:
		return 6
	default:
		return 4
	}
}
