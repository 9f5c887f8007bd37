package geospatial

import "math"

// Mean Earth radius in meters.
const earthRadiusM = 6_371_000.0

// Ground distance covered by one degree of latitude, in meters.
const metersPerDegreeLat = 111_320.0

// Haversine returns the great-circle distance in meters between two
// WGS 84 points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin(toRad(lat2-lat1) / 2)
	sinLon := math.Sin(toRad(lon2-lon1) / 2)

	a := sinLat*sinLat + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*sinLon*sinLon
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the box extending radiusMeters from a point in
// every direction. The longitude delta widens with latitude so the box
// keeps its ground size away from the equator.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegreeLat
	lonDelta := radiusMeters / (metersPerDegreeLat * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
