package ports

import (
	"context"

	"geoscout/internal/core/domain"
)

// Geocoder resolves a free-text place name to the best-matching place
// record. Implementations take the first candidate only, return
// domain.ErrPlaceNotFound (wrapped) when the collaborator answers with
// zero candidates, and domain.ErrGeocodeTransport (wrapped, including
// the upstream status) on transport failures.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (*domain.Place, error)
}

// FeatureSource fetches point features matching any of the given tag
// filters inside a bounding region. Zero matches is a valid empty
// result, not an error; transport failures wrap
// domain.ErrGeodataTransport.
type FeatureSource interface {
	Fetch(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error)
}
