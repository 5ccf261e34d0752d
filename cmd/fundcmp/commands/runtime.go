package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/feed"
	"github.com/wonny/fundcompare/backend/pkg/config"
	"github.com/wonny/fundcompare/backend/pkg/database"
	"github.com/wonny/fundcompare/backend/pkg/httputil"
	"github.com/wonny/fundcompare/backend/pkg/logger"
	"github.com/wonny/fundcompare/backend/pkg/redis"
)

// runtime holds the shared clients every command wires from config
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	http  *httputil.Client

	observe feed.FetchObserver
}

// newRuntime loads config and opens the clients the configured feeds need.
// Logs go to logOut.
func newRuntime(logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	rt := &runtime{
		cfg: cfg,
		log: logger.NewWithWriter(logOut, cfg),
	}

	rt.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	rt.http = httputil.New(cfg, rt.log).WithBreaker("feed")
	if rt.redis.Enabled() {
		rt.http.WithRateLimiter(redis.NewRateLimiter(rt.redis, logger.ServiceName), redis.FeedRateLimit)
	}

	if cfg.UsesPostgres() {
		if err := rt.openDB(); err != nil {
			rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

func (rt *runtime) openDB() error {
	if rt.db != nil {
		return nil
	}
	if rt.cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := database.New(rt.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	rt.db = db
	rt.log.Info("Connected to database")
	return nil
}

// source resolves a feed location with the runtime's clients
func (rt *runtime) source(location string) (feed.Source, error) {
	deps := feed.Deps{HTTP: rt.http}
	if rt.db != nil {
		deps.Store = rt.db
	}

	src, err := feed.NewSource(location, deps)
	if err != nil {
		return nil, err
	}
	return feed.Observe(src, rt.observe), nil
}

func (rt *runtime) loadCatalog(ctx context.Context) (*catalog.Index, error) {
	src, err := rt.source(rt.cfg.Feed.CatalogLocation)
	if err != nil {
		return nil, err
	}
	return feed.LoadCatalog(ctx, src, rt.log)
}

func (rt *runtime) seriesLoader() (*feed.SeriesLoader, error) {
	src, err := rt.source(rt.cfg.Feed.SeriesLocation)
	if err != nil {
		return nil, err
	}

	loader := feed.NewSeriesLoader(src, rt.log)
	if rt.redis.Enabled() {
		loader.WithCache(redis.NewCache(rt.redis, logger.ServiceName), rt.cfg.Feed.SeriesCacheTTL)
	}
	return loader, nil
}

// Close releases every client
func (rt *runtime) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}

// parseSelection splits FUND:CLASS
func parseSelection(s string) (string, string, error) {
	fundID, classID, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("selection %q must look like FUND:CLASS", s)
	}
	return strings.TrimSpace(fundID), strings.TrimSpace(classID), nil
}
