package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"geoscout/internal/core/domain"
	"geoscout/internal/core/usecases"
)

// --- Mock Geocoder ---

type mockGeocoder struct {
	resolveFn func(ctx context.Context, place string) (*domain.Place, error)
	calls     int
}

func (m *mockGeocoder) Resolve(ctx context.Context, place string) (*domain.Place, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, place)
	}
	return bordeaux(), nil
}

// --- Mock FeatureSource ---

type mockFeatureSource struct {
	fetchFn func(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error)
	calls   int
}

func (m *mockFeatureSource) Fetch(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, filters, region)
	}
	return busStops(), nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.store[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	completed []domain.SearchResult
	failed    []domain.SearchResult
}

func (m *mockPublisher) PublishSearchCompleted(ctx context.Context, r *domain.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, *r)
	return nil
}

func (m *mockPublisher) PublishSearchFailed(ctx context.Context, r *domain.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, *r)
	return nil
}

// --- Fixtures ---

func bordeaux() *domain.Place {
	return &domain.Place{
		Name:   "Bordeaux, Gironde, France",
		Center: domain.GeoPoint{Lat: 44.841, Lon: -0.580},
		Region: domain.Bounds{MinLat: 44.81, MinLon: -0.64, MaxLat: 44.92, MaxLon: -0.53},
	}
}

func busStops() []domain.Feature {
	return []domain.Feature{
		{ID: 101, Position: domain.GeoPoint{Lat: 44.84, Lon: -0.58}, Name: "Quinconces", Tags: map[string]string{"highway": "bus_stop"}},
		{ID: 102, Position: domain.GeoPoint{Lat: 44.85, Lon: -0.57}, Name: domain.UnnamedFeature, Tags: map[string]string{"highway": "bus_stop"}},
	}
}

// --- Tests ---

func TestSearchService_Success(t *testing.T) {
	geo := &mockGeocoder{}
	src := &mockFeatureSource{}
	events := &mockPublisher{}
	svc := usecases.NewSearchService(geo, src, nil, events)

	res, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != domain.StateDone {
		t.Errorf("expected done, got %s", res.State)
	}
	if res.Query != "bus stops in bordeaux" {
		t.Errorf("unexpected query echo %q", res.Query)
	}
	if res.Viewport == nil {
		t.Fatal("expected a viewport")
	}
	if res.Viewport.Center != (domain.GeoPoint{Lat: 44.841, Lon: -0.580}) {
		t.Errorf("viewport should center on the geocoded point, got %+v", res.Viewport.Center)
	}
	// 0.11 degrees of latitude, slightly more of adjusted longitude.
	if res.Viewport.Zoom != 10 {
		t.Errorf("expected zoom 10 for a city-scale region, got %d", res.Viewport.Zoom)
	}
	if len(res.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(res.Features))
	}
	if res.Err != "" {
		t.Errorf("expected empty error, got %q", res.Err)
	}
	if svc.State() != domain.StateDone {
		t.Errorf("expected service state done, got %s", svc.State())
	}
	if len(events.completed) != 1 || len(events.failed) != 0 {
		t.Errorf("expected one completed event, got %d completed / %d failed", len(events.completed), len(events.failed))
	}
}

func TestSearchService_Idempotent(t *testing.T) {
	svc := usecases.NewSearchService(&mockGeocoder{}, &mockFeatureSource{}, nil, nil)

	first, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if *first.Viewport != *second.Viewport {
		t.Errorf("viewports differ: %+v vs %+v", first.Viewport, second.Viewport)
	}
	if !reflect.DeepEqual(first.Features, second.Features) {
		t.Errorf("features differ between identical searches")
	}
}

func TestSearchService_EmptyResultIsNotAnError(t *testing.T) {
	src := &mockFeatureSource{
		fetchFn: func(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error) {
			return []domain.Feature{}, nil
		},
	}
	svc := usecases.NewSearchService(&mockGeocoder{}, src, nil, nil)

	res, err := svc.Search(context.Background(), "museums in Bordeaux")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Features == nil || len(res.Features) != 0 {
		t.Errorf("expected an empty feature slice, got %v", res.Features)
	}
	if res.Err != "" {
		t.Errorf("expected no error message, got %q", res.Err)
	}
}

func TestSearchService_FailurePreservesLastGood(t *testing.T) {
	geo := &mockGeocoder{}
	events := &mockPublisher{}
	svc := usecases.NewSearchService(geo, &mockFeatureSource{}, nil, events)

	good, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("seed search: %v", err)
	}

	geo.resolveFn = func(ctx context.Context, place string) (*domain.Place, error) {
		return nil, fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, place)
	}

	_, err = svc.Search(context.Background(), "bus stops in Atlantis")
	if !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}

	cur := svc.Current()
	if cur.State != domain.StateFailed {
		t.Errorf("expected failed state, got %s", cur.State)
	}
	if cur.Err == "" || !strings.Contains(cur.Err, "atlantis") {
		t.Errorf("expected the error to name the place, got %q", cur.Err)
	}
	if cur.Viewport == nil || *cur.Viewport != *good.Viewport {
		t.Errorf("viewport was not preserved across the failure")
	}
	if !reflect.DeepEqual(cur.Features, good.Features) {
		t.Errorf("features were not preserved across the failure")
	}
	if len(events.failed) != 1 {
		t.Errorf("expected one failed event, got %d", len(events.failed))
	}
}

func TestSearchService_MalformedQuery(t *testing.T) {
	svc := usecases.NewSearchService(&mockGeocoder{}, &mockFeatureSource{}, nil, nil)

	_, err := svc.Search(context.Background(), "bus stops near Bordeaux")
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}

	cur := svc.Current()
	if cur.Viewport != nil || len(cur.Features) != 0 {
		t.Errorf("a failed first search must not invent a result: %+v", cur)
	}
}

func TestSearchService_GeodataTransportError(t *testing.T) {
	src := &mockFeatureSource{
		fetchFn: func(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error) {
			return nil, fmt.Errorf("%w: status 504", domain.ErrGeodataTransport)
		},
	}
	svc := usecases.NewSearchService(&mockGeocoder{}, src, nil, nil)

	_, err := svc.Search(context.Background(), "schools in Bordeaux")
	if !errors.Is(err, domain.ErrGeodataTransport) {
		t.Fatalf("expected ErrGeodataTransport, got %v", err)
	}
	if !strings.Contains(err.Error(), "504") {
		t.Errorf("expected the transport status in the message, got %q", err.Error())
	}
}

func TestSearchService_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	release := make(chan struct{})
	geo := &mockGeocoder{
		resolveFn: func(ctx context.Context, place string) (*domain.Place, error) {
			close(gate)
			<-release
			return bordeaux(), nil
		},
	}
	svc := usecases.NewSearchService(geo, &mockFeatureSource{}, nil, nil)

	var (
		wg       sync.WaitGroup
		firstRes domain.SearchResult
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstRes, firstErr = svc.Search(context.Background(), "parks in Bordeaux")
	}()

	<-gate
	if st := svc.State(); st != domain.StateGeocoding {
		t.Errorf("expected geocoding while blocked, got %s", st)
	}
	_, err := svc.Search(context.Background(), "schools in Toulouse")
	if !errors.Is(err, domain.ErrSearchInFlight) {
		t.Fatalf("expected ErrSearchInFlight, got %v", err)
	}

	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("in-flight search should have completed: %v", firstErr)
	}
	cur := svc.Current()
	if cur.Query != firstRes.Query || cur.Err != "" {
		t.Errorf("rejected submission corrupted the published result: %+v", cur)
	}
}

func TestSearchService_GeocodeCache(t *testing.T) {
	geo := &mockGeocoder{}
	cache := newMockCache()
	svc := usecases.NewSearchService(geo, &mockFeatureSource{}, cache, nil)

	first, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), "bus stops in Bordeaux")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if geo.calls != 1 {
		t.Errorf("expected the second search to hit the geocode cache, geocoder called %d times", geo.calls)
	}
	if *first.Viewport != *second.Viewport || !reflect.DeepEqual(first.Features, second.Features) {
		t.Errorf("cache hit must publish the same triple as the miss")
	}
}

func TestSearchService_CacheFailureDegradesToMiss(t *testing.T) {
	geo := &mockGeocoder{}
	// Cache that always errors must not break the pipeline.
	svc := usecases.NewSearchService(geo, &mockFeatureSource{}, brokenCache{}, nil)

	if _, err := svc.Search(context.Background(), "bus stops in Bordeaux"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geo.calls != 1 {
		t.Errorf("expected the geocoder to be consulted, got %d calls", geo.calls)
	}
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func TestSearchService_InitialState(t *testing.T) {
	svc := usecases.NewSearchService(&mockGeocoder{}, &mockFeatureSource{}, nil, nil)

	if svc.State() != domain.StateIdle {
		t.Errorf("expected idle before any search, got %s", svc.State())
	}
	cur := svc.Current()
	if cur.Viewport != nil || cur.Err != "" || len(cur.Features) != 0 {
		t.Errorf("expected a zero result before any search, got %+v", cur)
	}
}
