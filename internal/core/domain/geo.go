package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
// Producers normalize edge order so that MinLat < MaxLat and
// MinLon < MaxLon always hold.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// LatSpan returns the north-south extent in degrees.
func (b Bounds) LatSpan() float64 {
	return b.MaxLat - b.MinLat
}

// LonSpan returns the east-west extent in degrees.
func (b Bounds) LonSpan() float64 {
	return b.MaxLon - b.MinLon
}
