package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/happytummy/demand-signal/internal/cache"
	"github.com/happytummy/demand-signal/internal/metrics"
	"github.com/happytummy/demand-signal/internal/models"
)

// Cache serves event tables from a cache.Provider, loading from the
// registered Source on a miss. Entries are keyed by origin and source ID.
type Cache struct {
	provider cache.Provider
	ttl      time.Duration
	logger   *slog.Logger
	sources  map[models.Origin]Source
	group    singleflight.Group
}

// NewCache registers one source per origin. A nil provider disables caching.
func NewCache(provider cache.Provider, ttl time.Duration, logger *slog.Logger, sources ...Source) (*Cache, error) {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		provider: provider,
		ttl:      ttl,
		logger:   logger,
		sources:  make(map[models.Origin]Source, len(sources)),
	}
	for _, src := range sources {
		if !src.Origin().Valid() {
			return nil, fmt.Errorf("source %s has unknown origin %q", src.ID(), src.Origin())
		}
		if _, dup := c.sources[src.Origin()]; dup {
			return nil, fmt.Errorf("duplicate source for origin %s", src.Origin())
		}
		c.sources[src.Origin()] = src
	}
	return c, nil
}

// Key returns the cache key for a source.
func Key(src Source) string {
	return fmt.Sprintf("events:%s:%s", src.Origin(), src.ID())
}

// Events returns the event table for origin.
func (c *Cache) Events(ctx context.Context, origin models.Origin) ([]models.OrderEvent, error) {
	src, ok := c.sources[origin]
	if !ok {
		return nil, fmt.Errorf("no source registered for origin %s", origin)
	}
	key := Key(src)

	if events, ok := c.lookup(ctx, key); ok {
		metrics.ObserveSourceLoad(string(origin), true)
		return events, nil
	}
	metrics.ObserveSourceLoad(string(origin), false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		start := time.Now()
		events, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, events)
		c.logger.Info("event table loaded",
			slog.String("origin", string(origin)),
			slog.String("source", src.ID()),
			slog.Int("events", len(events)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return events, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s events: %w", origin, err)
	}
	return v.([]models.OrderEvent), nil
}

// All returns requester and supplier events concatenated.
func (c *Cache) All(ctx context.Context) ([]models.OrderEvent, error) {
	requesters, err := c.Events(ctx, models.OriginRequester)
	if err != nil {
		return nil, err
	}
	suppliers, err := c.Events(ctx, models.OriginSupplier)
	if err != nil {
		return nil, err
	}
	all := make([]models.OrderEvent, 0, len(requesters)+len(suppliers))
	all = append(all, requesters...)
	return append(all, suppliers...), nil
}

// Invalidate drops the cached table for origin.
func (c *Cache) Invalidate(ctx context.Context, origin models.Origin) error {
	src, ok := c.sources[origin]
	if !ok {
		return fmt.Errorf("no source registered for origin %s", origin)
	}
	if err := c.provider.Del(ctx, Key(src)); err != nil {
		return fmt.Errorf("invalidate %s events: %w", origin, err)
	}
	c.group.Forget(Key(src))
	return nil
}

// Purge drops every cached table.
func (c *Cache) Purge(ctx context.Context) error {
	var errs []error
	for origin := range c.sources {
		if err := c.Invalidate(ctx, origin); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) lookup(ctx context.Context, key string) ([]models.OrderEvent, bool) {
	data, err := c.provider.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("event cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	var events []models.OrderEvent
	if err := json.Unmarshal(data, &events); err != nil {
		c.logger.Warn("event cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		if err := c.provider.Del(ctx, key); err != nil {
			c.logger.Warn("event cache delete failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return events, true
}

func (c *Cache) store(ctx context.Context, key string, events []models.OrderEvent) {
	data, err := json.Marshal(events)
	if err != nil {
		c.logger.Warn("event cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	// instances sharing a provider keep the first fresh table
	stored, err := c.provider.SetNX(ctx, key, data, c.ttl)
	if err != nil {
		c.logger.Warn("event cache write failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if !stored {
		c.logger.Debug("event table already cached", slog.String("key", key))
	}
}
