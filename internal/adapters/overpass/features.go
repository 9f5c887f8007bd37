package overpass

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"geoscout/internal/core/domain"
	"geoscout/internal/pkg/metrics"
)

// FeatureSource queries an Overpass API endpoint for point features.
type FeatureSource struct {
	client       *overpass.Client
	queryTimeout int
}

// New creates a FeatureSource. queryTimeoutSeconds is the [timeout:]
// budget sent inside every query; the HTTP client deadline stays above
// it so the server can answer a timeout of its own before the transport
// gives up.
func New(endpoint string, maxParallel, queryTimeoutSeconds int) *FeatureSource {
	// The client's parallelism gate blocks forever at zero.
	if maxParallel < 1 {
		maxParallel = 1
	}
	httpClient := &http.Client{
		Timeout: time.Duration(queryTimeoutSeconds+10) * time.Second,
	}
	client := overpass.NewWithSettings(endpoint, maxParallel, httpClient)
	return &FeatureSource{client: &client, queryTimeout: queryTimeoutSeconds}
}

// Fetch implements ports.FeatureSource. All filters go out as one
// query, ORed node selectors scoped to the same bounding box. Ways and
// relations are not requested; only point records become features.
func (f *FeatureSource) Fetch(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeodataTransport, err)
	}

	result, err := f.client.Query(buildQuery(filters, region, f.queryTimeout))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("overpass", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrGeodataTransport, err)
	}
	metrics.UpstreamRequests.WithLabelValues("overpass", "ok").Inc()

	features := make([]domain.Feature, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		if node == nil {
			continue
		}
		// Way members arrive as bare references without coordinates or
		// tags; those placeholders are not point features.
		if node.Lat == 0 && node.Lon == 0 && len(node.Tags) == 0 {
			continue
		}
		features = append(features, toFeature(node))
	}
	// Result nodes are keyed by ID, so iteration order is random; sort
	// so the same upstream answer always publishes the same sequence.
	sort.Slice(features, func(i, j int) bool { return features[i].ID < features[j].ID })
	return features, nil
}

// buildQuery renders one Overpass QL statement: a union of node
// selectors, each scoped to the same (south,west,north,east) box.
func buildQuery(filters []domain.TagFilter, region domain.Bounds, timeoutSeconds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", timeoutSeconds)
	for _, f := range filters {
		fmt.Fprintf(&b, "node[%q=%q](%f,%f,%f,%f);",
			f.Key(), f.Value(),
			region.MinLat, region.MinLon, region.MaxLat, region.MaxLon)
	}
	b.WriteString(");out body;")
	return b.String()
}

func toFeature(node *overpass.Node) domain.Feature {
	name := domain.UnnamedFeature
	tags := make(map[string]string, len(node.Tags))
	for k, v := range node.Tags {
		if k == "name" {
			if v != "" {
				name = v
			}
			continue
		}
		tags[k] = v
	}
	return domain.Feature{
		ID:       node.ID,
		Position: domain.GeoPoint{Lat: node.Lat, Lon: node.Lon},
		Name:     name,
		Tags:     tags,
	}
}
