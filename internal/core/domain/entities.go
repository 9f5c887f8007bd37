package domain

import (
	"time"
)

// UnnamedFeature is the display name given to features whose record
// carries no name tag.
const UnnamedFeature = "Unnamed Feature"

// TagFilter is one feature-category predicate in the geodata index,
// expressed as a "key=value" string. Filters are produced only by the
// topic dictionary and never mutated.
type TagFilter string

// Key returns the tag key of the predicate.
func (f TagFilter) Key() string {
	for i := 0; i < len(f); i++ {
		if f[i] == '=' {
			return string(f[:i])
		}
	}
	return string(f)
}

// Value returns the tag value of the predicate, or "" when the filter
// has no value part.
func (f TagFilter) Value() string {
	for i := 0; i < len(f); i++ {
		if f[i] == '=' {
			return string(f[i+1:])
		}
	}
	return ""
}

// ParsedQuery is the structured form of one user submission: the
// resolved tag filters (unique, first-seen order) and the place phrase.
// Constructed once per search and immutable thereafter.
type ParsedQuery struct {
	Filters []TagFilter `json:"filters"`
	Place   string      `json:"place"`
}

// Place is a resolved place: its display name, a representative point,
// and the bounding region that contains it.
type Place struct {
	Name   string   `json:"name"`
	Center GeoPoint `json:"center"`
	Region Bounds   `json:"region"`
}

// Viewport is the map camera state derived from a bounding region.
// It is replaced wholesale on every successful search.
type Viewport struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
}

// Feature is one point of interest returned by a search.
type Feature struct {
	ID       int64             `json:"id"`
	Position GeoPoint          `json:"position"`
	Name     string            `json:"name"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// SearchState names the pipeline stage a search is in.
type SearchState string

const (
	StateIdle      SearchState = "idle"
	StateParsing   SearchState = "parsing"
	StateGeocoding SearchState = "geocoding"
	StateFetching  SearchState = "fetching"
	StateDone      SearchState = "done"
	StateFailed    SearchState = "failed"
)

// SearchResult is the triple published after every search attempt.
// A failed attempt carries its error message alongside the last
// successful viewport and features; a successful attempt replaces all
// three at once.
type SearchResult struct {
	Query     string      `json:"query,omitempty"`
	State     SearchState `json:"state"`
	Viewport  *Viewport   `json:"viewport,omitempty"`
	Features  []Feature   `json:"features"`
	Err       string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
