package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"btclotto/domain/entities"

	"github.com/go-redis/redis/v7"
	log "github.com/sirupsen/logrus"
)

const (
	statsKey      = "btclotto:stats"
	generationKey = "btclotto:stats:generation"
)

// setIfCurrent stores the stats only while the generation is the one read
// before they were computed.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisStatsCache stores system stats as JSON under a single key with a TTL.
// Every invalidation bumps a generation counter so stats computed before it
// are never written back.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if _, err := client.WithContext(ctx).Ping().Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}

// NewRedisStatsCache creates a stats cache on the client
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats, nil on a miss, and the current generation
func (c *RedisStatsCache) Get(ctx context.Context) (*entities.SystemStats, uint64, error) {
	values, err := c.client.WithContext(ctx).MGet(statsKey, generationKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get stats from redis: %w", err)
	}

	generation, err := parseGeneration(values[1])
	if err != nil {
		return nil, 0, err
	}

	data, ok := values[0].(string)
	if !ok {
		return nil, generation, nil
	}

	var stats entities.SystemStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return &stats, generation, nil
}

// Set stores the stats until the TTL expires, unless the cache was
// invalidated since generation was read
func (c *RedisStatsCache) Set(ctx context.Context, stats *entities.SystemStats, generation uint64) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	stored, err := setIfCurrent.Run(c.client.WithContext(ctx),
		[]string{statsKey, generationKey},
		data, strconv.FormatUint(generation, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to save stats to redis: %w", err)
	}
	if stored == 0 {
		log.WithField("generation", generation).Debug("Stats invalidated while computing, not cached")
	}
	return nil
}

// Invalidate drops the cached stats and bumps the generation
func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	_, err := c.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.Incr(generationKey)
		pipe.Del(statsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached stats: %w", err)
	}
	return nil
}

func parseGeneration(value interface{}) (uint64, error) {
	text, ok := value.(string)
	if !ok {
		return 0, nil
	}
	generation, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stats generation %q: %w", text, err)
	}
	return generation, nil
}
