package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"geoscout/internal/core/domain"
	"geoscout/internal/core/ports"
	"geoscout/internal/core/query"
	"geoscout/internal/pkg/geospatial"
	"geoscout/internal/pkg/metrics"
	"geoscout/internal/pkg/telemetry"
)

var tracer = otel.Tracer("geoscout/internal/core/usecases")

// Cache TTLs in seconds. Resolved places move rarely; feature sets
// churn more often.
const (
	geocodeCacheTTL  = 600
	featuresCacheTTL = 300
)

// SearchService runs the free-text search pipeline: parse the text,
// geocode the place, derive a viewport, fetch matching features. It
// owns the only mutable state in the system: the pipeline stage and
// the last published result.
//
// At most one search runs at a time. The stages execute strictly in
// sequence; the geodata query needs the bounding region the geocoder
// produced, so there is nothing to parallelize.
type SearchService struct {
	geocoder ports.Geocoder
	features ports.FeatureSource
	cache    ports.CacheService
	events   ports.EventPublisher

	// flight is held for the duration of one pipeline run; TryLock
	// rejects submissions that arrive while it is taken.
	flight sync.Mutex

	mu      sync.RWMutex
	state   domain.SearchState
	current domain.SearchResult
}

// NewSearchService creates a new SearchService. cache and events may
// be nil; caching and event publishing are skipped then.
func NewSearchService(
	geocoder ports.Geocoder,
	features ports.FeatureSource,
	cache ports.CacheService,
	events ports.EventPublisher,
) *SearchService {
	return &SearchService{
		geocoder: geocoder,
		features: features,
		cache:    cache,
		events:   events,
		state:    domain.StateIdle,
		current:  domain.SearchResult{State: domain.StateIdle, Features: []domain.Feature{}},
	}
}

// Search runs one full pipeline pass over raw user text and publishes
// the outcome. A successful pass replaces the published result
// wholesale; a failed pass records only the error and keeps the last
// good viewport and features visible.
//
// A submission made while another search has not reached done or
// failed is rejected with domain.ErrSearchInFlight and leaves the
// published result untouched.
func (s *SearchService) Search(ctx context.Context, raw string) (domain.SearchResult, error) {
	if !s.flight.TryLock() {
		metrics.SearchesTotal.WithLabelValues("rejected").Inc()
		return s.Current(), domain.ErrSearchInFlight
	}
	defer s.flight.Unlock()

	ctx, span := tracer.Start(ctx, telemetry.SpanPipeline)
	defer span.End()

	started := time.Now()
	result, err := s.run(ctx, raw)
	metrics.SearchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.SearchesTotal.WithLabelValues("failed").Inc()
		return result, err
	}
	metrics.SearchesTotal.WithLabelValues("done").Inc()
	metrics.FeaturesReturned.Observe(float64(len(result.Features)))
	return result, nil
}

func (s *SearchService) run(ctx context.Context, raw string) (domain.SearchResult, error) {
	s.setState(domain.StateParsing)
	parsed, err := s.parse(ctx, raw)
	if err != nil {
		return s.fail(ctx, err), err
	}

	s.setState(domain.StateGeocoding)
	place, err := s.resolvePlace(ctx, parsed.Place)
	if err != nil {
		return s.fail(ctx, err), err
	}

	// The map centers on the geocoded point; the zoom fits the region.
	viewport := domain.Viewport{
		Center: place.Center,
		Zoom: geospatial.ZoomFor(
			place.Region.MinLat, place.Region.MinLon,
			place.Region.MaxLat, place.Region.MaxLon,
		),
	}
	slog.Debug("place resolved",
		"place", place.Name,
		"zoom", viewport.Zoom,
		"region_diagonal_m", geospatial.Haversine(
			place.Region.MinLat, place.Region.MinLon,
			place.Region.MaxLat, place.Region.MaxLon,
		),
	)

	s.setState(domain.StateFetching)
	feats, err := s.fetchFeatures(ctx, parsed.Filters, place.Region)
	if err != nil {
		return s.fail(ctx, err), err
	}

	return s.publish(ctx, strings.ToLower(strings.TrimSpace(raw)), viewport, feats), nil
}

func (s *SearchService) parse(ctx context.Context, raw string) (domain.ParsedQuery, error) {
	_, span := tracer.Start(ctx, telemetry.SpanParse)
	defer span.End()
	defer observeStage("parse", time.Now())

	parsed, err := query.Parse(raw)
	if err != nil {
		span.RecordError(err)
		return domain.ParsedQuery{}, err
	}
	span.SetAttributes(
		attribute.String("place", parsed.Place),
		attribute.Int("filters", len(parsed.Filters)),
	)
	return parsed, nil
}

func (s *SearchService) resolvePlace(ctx context.Context, name string) (*domain.Place, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanGeocode)
	defer span.End()
	defer observeStage("geocode", time.Now())

	cacheKey := "geocode:place:" + name
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var place domain.Place
			if err := json.Unmarshal(data, &place); err == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				return &place, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	place, err := s.geocoder.Resolve(ctx, name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(place); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, geocodeCacheTTL)
		}
	}
	return place, nil
}

func (s *SearchService) fetchFeatures(ctx context.Context, filters []domain.TagFilter, region domain.Bounds) ([]domain.Feature, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanFetch)
	defer span.End()
	defer observeStage("fetch", time.Now())
	span.SetAttributes(attribute.Int("filters", len(filters)))

	cacheKey := featuresCacheKey(filters, region)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var feats []domain.Feature
			if err := json.Unmarshal(data, &feats); err == nil {
				metrics.CacheHits.WithLabelValues("features").Inc()
				return feats, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("features").Inc()
	}

	feats, err := s.features.Fetch(ctx, filters, region)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(feats); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, featuresCacheTTL)
		}
	}
	return feats, nil
}

// publish replaces the published result in one critical section so
// readers never observe a half-applied search.
func (s *SearchService) publish(ctx context.Context, normalized string, viewport domain.Viewport, feats []domain.Feature) domain.SearchResult {
	if feats == nil {
		feats = []domain.Feature{}
	}

	s.mu.Lock()
	s.state = domain.StateDone
	s.current = domain.SearchResult{
		Query:     normalized,
		State:     domain.StateDone,
		Viewport:  &viewport,
		Features:  feats,
		UpdatedAt: time.Now(),
	}
	snapshot := s.current
	s.mu.Unlock()

	slog.Info("search done", "query", normalized, "features", len(feats), "zoom", viewport.Zoom)
	if s.events != nil {
		if err := s.events.PublishSearchCompleted(ctx, &snapshot); err != nil {
			slog.Warn("publish search.completed", "error", err)
		}
	}
	return snapshot
}

// fail records the error on the published result. Viewport, features
// and query echo stay as the last successful search left them.
func (s *SearchService) fail(ctx context.Context, cause error) domain.SearchResult {
	s.mu.Lock()
	s.state = domain.StateFailed
	s.current.State = domain.StateFailed
	s.current.Err = cause.Error()
	s.current.UpdatedAt = time.Now()
	snapshot := s.current
	s.mu.Unlock()

	slog.Warn("search failed", "error", cause)
	if s.events != nil {
		if err := s.events.PublishSearchFailed(ctx, &snapshot); err != nil {
			slog.Warn("publish search.failed", "error", err)
		}
	}
	return snapshot
}

// Current returns the last published result.
func (s *SearchService) Current() domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// State returns the live pipeline stage.
func (s *SearchService) State() domain.SearchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SearchService) setState(state domain.SearchState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func observeStage(stage string, started time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// featuresCacheKey is stable across filter ordering so "bus and school"
// and "school and bus" share one cache entry.
func featuresCacheKey(filters []domain.TagFilter, region domain.Bounds) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = string(f)
	}
	sort.Strings(parts)
	return fmt.Sprintf("features:%s:%.4f:%.4f:%.4f:%.4f",
		strings.Join(parts, "+"),
		region.MinLat, region.MinLon, region.MaxLat, region.MaxLon)
}
