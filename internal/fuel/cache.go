package fuel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pkordes/carless/internal/domain"
)

const keyPrefix = "carless:fuel-price:"

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedFinder memoises lookups in redis, one key per calendar date.
// Redis errors degrade to a direct lookup. Misses are not cached.
type CachedFinder struct {
	next   Finder
	client RedisClient
	ttl    time.Duration
	log    *slog.Logger
}

// NewCachedFinder wraps next with a redis cache whose entries live for ttl.
func NewCachedFinder(next Finder, client RedisClient, ttl time.Duration, log *slog.Logger) *CachedFinder {
	if log == nil {
		log = slog.Default()
	}
	return &CachedFinder{next: next, client: client, ttl: ttl, log: log}
}

type cachedPrice struct {
	SeriesID  string `json:"series_id"`
	StartDate string `json:"start_date"`
	Price     string `json:"price"`
}

func (c *CachedFinder) FuelPrice(ctx context.Context, date time.Time) (domain.FuelPrice, error) {
	key := cacheKey(date)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		p, decodeErr := decodePrice(raw)
		if decodeErr == nil {
			return p, nil
		}
		c.log.WarnContext(ctx, "fuel price cache entry unreadable", "key", key, "error", decodeErr)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "fuel price cache read failed", "key", key, "error", err)
	}

	p, err := c.next.FuelPrice(ctx, date)
	if err != nil {
		return domain.FuelPrice{}, err
	}

	data, _ := json.Marshal(cachedPrice{
		SeriesID:  p.SeriesID,
		StartDate: p.StartDate.Format(time.DateOnly),
		Price:     p.Price.String(),
	})
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "fuel price cache write failed", "key", key, "error", err)
	}
	return p, nil
}

// Forget drops the cached entries for the given dates. Callers use it after
// upserting a price that could change what those dates resolve to.
func (c *CachedFinder) Forget(ctx context.Context, dates ...time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = cacheKey(d)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("fuel.CachedFinder.Forget: %w", err)
	}
	return nil
}

func cacheKey(date time.Time) string {
	return keyPrefix + truncateDay(date).Format(time.DateOnly)
}

func decodePrice(raw string) (domain.FuelPrice, error) {
	var cp cachedPrice
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return domain.FuelPrice{}, err
	}
	start, err := time.Parse(time.DateOnly, cp.StartDate)
	if err != nil {
		return domain.FuelPrice{}, err
	}
	price, err := decimal.NewFromString(cp.Price)
	if err != nil {
		return domain.FuelPrice{}, err
	}
	return domain.FuelPrice{SeriesID: cp.SeriesID, StartDate: start, Price: price}, nil
}
