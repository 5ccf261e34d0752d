package feed

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/series"
	"github.com/wonny/fundcompare/backend/pkg/logger"
	"github.com/wonny/fundcompare/backend/pkg/redis"
)

// LoadCatalog fetches and parses the catalog document
// ⭐ SSOT: 카탈로그는 시작 시 한 번만 로드
func LoadCatalog(ctx context.Context, src Source, log *logger.Logger) (*catalog.Index, error) {
	log = log.WithField("location", src.Location())

	raw, err := src.Fetch(ctx)
	if err != nil {
		log.WithError(err).Error("Catalog fetch failed")
		return nil, err
	}

	var idx *catalog.Index
	if DetectFormat(src.Location()) == FormatYAML {
		idx, err = catalog.ParseYAML(raw)
	} else {
		idx, err = catalog.Parse(raw)
	}
	if err != nil {
		log.WithError(err).Error("Catalog parse failed")
		return nil, err
	}

	log.WithField("funds", idx.Len()).Info("Catalog loaded")
	return idx, nil
}

// ParseSeries decodes a series document in the format of its location
func ParseSeries(location string, raw []byte) (*series.Index, error) {
	if DetectFormat(location) == FormatYAML {
		return series.ParseYAML(raw)
	}
	return series.Parse(raw)
}

// SeriesLoader fetches the series document on first use and keeps it.
// Failures are not kept, so the next call tries again.
type SeriesLoader struct {
	src      Source
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger

	mu  sync.Mutex
	idx *series.Index
}

// NewSeriesLoader creates a loader for src
func NewSeriesLoader(src Source, log *logger.Logger) *SeriesLoader {
	return &SeriesLoader{
		src:    src,
		logger: log.WithField("location", src.Location()),
	}
}

// WithCache shares the raw document between instances through Redis
func (l *SeriesLoader) WithCache(cache *redis.Cache, ttl time.Duration) *SeriesLoader {
	l.cache = cache
	l.cacheTTL = ttl
	return l
}

// Loaded reports whether the series is already in memory
func (l *SeriesLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.idx != nil
}

// Load returns the series index, fetching it if needed.
// Concurrent first calls may each fetch; the last success is kept.
func (l *SeriesLoader) Load(ctx context.Context) (*series.Index, error) {
	l.mu.Lock()
	idx := l.idx
	l.mu.Unlock()
	if idx != nil {
		return idx, nil
	}

	idx, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.idx = idx
	l.mu.Unlock()

	l.logger.WithField("rows", idx.Len()).Info("Series loaded")
	return idx, nil
}

func (l *SeriesLoader) fetch(ctx context.Context) (*series.Index, error) {
	location := l.src.Location()

	// fetched is set when load ran, so a fresh document is parsed once
	var fetched *series.Index
	load := func() ([]byte, error) {
		raw, err := l.src.Fetch(ctx)
		if err != nil {
			l.logger.WithError(err).Error("Series fetch failed")
			return nil, err
		}
		idx, err := ParseSeries(location, raw)
		if err != nil {
			l.logger.WithError(err).Error("Series parse failed")
			return nil, err
		}
		fetched = idx
		return raw, nil
	}

	if l.cache == nil {
		if _, err := load(); err != nil {
			return nil, err
		}
		return fetched, nil
	}

	// only documents that parsed reach the cache
	key := redis.DocumentKey(location)
	raw, err := l.cache.GetOrSet(ctx, key, l.cacheTTL, load)
	if err != nil {
		return nil, err
	}
	if fetched != nil {
		return fetched, nil
	}

	idx, err := ParseSeries(location, raw)
	if err == nil {
		l.logger.Debug("Series served from cache")
		return idx, nil
	}

	l.logger.WithError(err).Warn("Cached series unusable, refetching")
	_ = l.cache.Delete(ctx, key)
	raw, err = load()
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, key, raw, l.cacheTTL); err != nil {
		l.logger.WithError(err).Warn("Series cache write failed")
	}
	return fetched, nil
}
