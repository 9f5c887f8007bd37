package http

import (
	"github.com/nats-io/nats.go"

	"geoscout/internal/adapters/valkey"
	"geoscout/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need. NATS and Cache
// may be nil when those backends are disabled; the collaborator
// endpoints are carried for readiness reporting.
type Dependencies struct {
	Search *usecases.SearchService
	NATS   *nats.Conn
	Cache  *valkey.Cache

	GeocoderEndpoint string
	GeodataEndpoint  string
}
