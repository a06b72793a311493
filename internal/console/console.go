// Package console assembles the review clients from configuration.
package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/cache"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/cache/redis"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/ingest"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/records"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/status"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/storage/sqlite"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/thresholds"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/circuitbreaker"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/config"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

type Console struct {
	Gateway    *gateway.Gateway
	Records    *records.Controller
	Thresholds *thresholds.Client
	Status     *status.Reader
	Uploader   *ingest.Uploader
	// Journal is nil unless journal.enabled is set.
	Journal *sqlite.Journal

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*Console, error) {
	c := &Console{}

	var observers []gateway.Observer
	if cfg.Journal.Enabled {
		journal, err := sqlite.NewJournal(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open call journal: %w", err)
		}
		c.Journal = journal
		c.closers = append(c.closers, journal.Close)
		observers = append(observers, journal)
	}

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.Backend.Breaker.Enabled {
		breaker = circuitbreaker.NewCircuitBreaker("review-backend", circuitbreaker.Config{
			FailureThreshold: uint32(cfg.Backend.Breaker.FailureThreshold),
			Timeout:          cfg.Backend.Breaker.Timeout(),
			Logger:           logger.GetLogger(),
		})
	}

	gw, err := gateway.New(gateway.Options{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout(),
		DefaultUserID: cfg.Backend.DefaultUserID,
		Breaker:       breaker,
		Observers:     observers,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Gateway = gw

	store, err := c.openCache(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Records = records.NewController(gw, records.WithCache(store, cfg.Cache.TTL()))
	c.Thresholds = thresholds.NewClient(gw, thresholds.WithCache(store, cfg.Cache.TTL()))
	c.Status = status.NewReader(gw)
	c.Uploader = ingest.NewUploader(gw)

	logger.Debug("Console assembled",
		zap.String("backend", gw.BaseURL()),
		zap.String("cache", cfg.Cache.Driver),
		zap.Bool("journal", cfg.Journal.Enabled),
		zap.Bool("breaker", breaker != nil),
	)
	return c, nil
}

func (c *Console) openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		return client, nil
	case "none":
		return cache.Noop{}, nil
	default:
		return cache.NewMemory(), nil
	}
}

// Close releases the journal and cache connections. It is safe to call on a
// partially built console.
func (c *Console) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
