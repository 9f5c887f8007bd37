package domain

import "errors"

// Pipeline error kinds. Each search failure wraps exactly one of these
// so callers can map it to a transport status with errors.Is.
var (
	// ErrMalformedQuery: the raw text does not split into a topic
	// phrase and a place phrase.
	ErrMalformedQuery = errors.New("malformed query")

	// ErrUnknownTopics: the topic phrase resolved to zero known
	// topic keywords.
	ErrUnknownTopics = errors.New("unknown topics")

	// ErrPlaceNotFound: the geocoder returned zero candidates.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrGeocodeTransport: the geocoding collaborator failed at the
	// transport level or answered with a non-success status.
	ErrGeocodeTransport = errors.New("geocoding request failed")

	// ErrGeodataTransport: the geodata collaborator failed at the
	// transport level or answered with a non-success status.
	ErrGeodataTransport = errors.New("geodata request failed")

	// ErrSearchInFlight: a submission arrived while another search
	// had not yet reached done or failed.
	ErrSearchInFlight = errors.New("a search is already in flight")
)
