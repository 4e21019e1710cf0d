package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	eventKeyPrefix   = "event:"
	versionKeyPrefix = "event:ver:"
	defaultTTL       = 5 * time.Minute
	versionTTL       = 24 * time.Hour
)

// invalidateScript drops the entry and bumps the id's version in one step.
var invalidateScript = redis.NewScript(`
redis.call("DEL", KEYS[1])
local v = redis.call("INCR", KEYS[2])
redis.call("EXPIRE", KEYS[2], ARGV[1])
return v
`)

// fillScript stores the entry only while the version still equals ARGV[1].
var fillScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if not current then current = "0" end
if current ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	redis.Scripter
}

// EventCache holds EventDto snapshots keyed by id. Every invalidation bumps a
// per-id version; a fill started before the bump is discarded, so a reader that
// loaded a row before a concurrent write cannot put the old row back.
type EventCache struct {
	Client RedisClient
	TTL    time.Duration
	Logger *logger.Logger
}

func NewEventCache(client RedisClient, ttl time.Duration, log *logger.Logger) *EventCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &EventCache{Client: client, TTL: ttl, Logger: log}
}

// Connect builds a client from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func EventKey(id int64) string {
	return fmt.Sprintf("%s%d", eventKeyPrefix, id)
}

func VersionKey(id int64) string {
	return fmt.Sprintf("%s%d", versionKeyPrefix, id)
}

// Get reports found=false on a miss.
func (c *EventCache) Get(ctx context.Context, id int64) (*models.EventDto, bool, error) {
	key := EventKey(id)
	raw, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		c.logCache("MISS", key, "not cached")
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var dto models.EventDto
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		// a corrupt entry is treated as a miss and removed
		c.Client.Del(ctx, key)
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	c.logCache("HIT", key, "served from cache")
	return &dto, true, nil
}

// Version returns the id's current version; read it before loading the row
// that is later passed to Set.
func (c *EventCache) Version(ctx context.Context, id int64) (int64, error) {
	key := VersionKey(id)
	v, err := c.Client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version %s: %w", key, err)
	}
	return v, nil
}

// Set stores dto unless the id was invalidated after version was read.
func (c *EventCache) Set(ctx context.Context, dto models.EventDto, version int64) error {
	key := EventKey(dto.ID)
	payload, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	stored, err := fillScript.Run(ctx, c.Client,
		[]string{key, VersionKey(dto.ID)},
		version, string(payload), c.TTL.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if stored == 0 {
		c.logCache("SKIP", key, fmt.Sprintf("version %d is outdated", version))
		return nil
	}
	c.logCache("SET", key, fmt.Sprintf("ttl %s", c.TTL))
	return nil
}

func (c *EventCache) Invalidate(ctx context.Context, id int64) error {
	key := EventKey(id)
	version, err := invalidateScript.Run(ctx, c.Client,
		[]string{key, VersionKey(id)},
		int64(versionTTL.Seconds()),
	).Int64()
	if err != nil {
		return fmt.Errorf("cache invalidate %s: %w", key, err)
	}
	c.logCache("DEL", key, fmt.Sprintf("invalidated, version %d", version))
	return nil
}

func (c *EventCache) logCache(action, key, message string) {
	if c.Logger != nil {
		c.Logger.LogCache(action, key, message)
	}
}
