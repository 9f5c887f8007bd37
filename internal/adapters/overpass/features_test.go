package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geoscout/internal/core/domain"
)

var testRegion = domain.Bounds{MinLat: 44.81, MinLon: -0.64, MaxLat: 44.92, MaxLon: -0.53}

// overpassResponse mimics a real interpreter answer: two matching
// nodes plus a way whose member node arrives as a bare reference.
const overpassResponse = `{
  "version": 0.6,
  "generator": "Overpass API 0.7.62",
  "osm3s": {
    "timestamp_osm_base": "2026-08-25T00:00:00Z",
    "copyright": "The data included in this document is from www.openstreetmap.org."
  },
  "elements": [
    {
      "type": "node",
      "id": 205,
      "lat": 44.8501,
      "lon": -0.5702,
      "tags": {"highway": "bus_stop", "shelter": "yes"}
    },
    {
      "type": "node",
      "id": 101,
      "lat": 44.8405,
      "lon": -0.5805,
      "tags": {"highway": "bus_stop", "name": "Quinconces"}
    },
    {
      "type": "way",
      "id": 777,
      "nodes": [999],
      "tags": {"amenity": "school"}
    }
  ]
}`

const emptyResponse = `{
  "version": 0.6,
  "generator": "Overpass API 0.7.62",
  "osm3s": {"timestamp_osm_base": "2026-08-25T00:00:00Z", "copyright": ""},
  "elements": []
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) (*FeatureSource, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, 1, 25), server
}

func TestFetch_MapsNodesToFeatures(t *testing.T) {
	var gotQuery string
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.PostFormValue("data")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(overpassResponse))
	})

	filters := []domain.TagFilter{"highway=bus_stop", "amenity=school"}
	features, err := source.Fetch(context.Background(), filters, testRegion)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// Query shape: one union of node selectors over the shared box
	if !strings.HasPrefix(gotQuery, "[out:json][timeout:25];(") {
		t.Errorf("unexpected query prefix: %q", gotQuery)
	}
	if !strings.HasSuffix(gotQuery, ");out body;") {
		t.Errorf("unexpected query suffix: %q", gotQuery)
	}
	for _, selector := range []string{
		`node["highway"="bus_stop"](44.810000,-0.640000,44.920000,-0.530000);`,
		`node["amenity"="school"](44.810000,-0.640000,44.920000,-0.530000);`,
	} {
		if !strings.Contains(gotQuery, selector) {
			t.Errorf("query missing %q, got %q", selector, gotQuery)
		}
	}

	// The way and its bare member reference produce no features
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d: %+v", len(features), features)
	}

	// Sorted by record ID regardless of response order
	if features[0].ID != 101 || features[1].ID != 205 {
		t.Fatalf("expected features sorted by ID [101 205], got [%d %d]", features[0].ID, features[1].ID)
	}

	named := features[0]
	if named.Name != "Quinconces" {
		t.Errorf("expected name Quinconces, got %q", named.Name)
	}
	if named.Position.Lat != 44.8405 || named.Position.Lon != -0.5805 {
		t.Errorf("unexpected position: %+v", named.Position)
	}
	if _, ok := named.Tags["name"]; ok {
		t.Error("name tag should not be duplicated into the tag map")
	}
	if named.Tags["highway"] != "bus_stop" {
		t.Errorf("expected highway tag, got %+v", named.Tags)
	}

	unnamed := features[1]
	if unnamed.Name != domain.UnnamedFeature {
		t.Errorf("expected %q for a nameless record, got %q", domain.UnnamedFeature, unnamed.Name)
	}
	if unnamed.Tags["shelter"] != "yes" {
		t.Errorf("expected shelter tag, got %+v", unnamed.Tags)
	}
}

func TestFetch_EmptyResultIsNotAnError(t *testing.T) {
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(emptyResponse))
	})

	features, err := source.Fetch(context.Background(), []domain.TagFilter{"amenity=cafe"}, testRegion)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if features == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(features) != 0 {
		t.Fatalf("expected no features, got %d", len(features))
	}
}

func TestFetch_UpstreamFailure(t *testing.T) {
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	_, err := source.Fetch(context.Background(), []domain.TagFilter{"amenity=cafe"}, testRegion)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, domain.ErrGeodataTransport) {
		t.Errorf("expected geodata transport error, got %v", err)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Fetch(ctx, []domain.TagFilter{"amenity=cafe"}, testRegion)
	if !errors.Is(err, domain.ErrGeodataTransport) {
		t.Errorf("expected geodata transport error, got %v", err)
	}
}
