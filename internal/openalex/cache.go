package openalex

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConceptCache caches topic name to concept id lookups so repeated queries
// on popular topics skip the catalog round trip.
type ConceptCache interface {
	GetConcept(ctx context.Context, topic string) (string, bool)
	PutConcept(ctx context.Context, topic, id string)
}

// RedisConceptCache is the redis-backed ConceptCache. Concept ids are stable
// upstream, so the TTL only bounds memory, it is not a correctness knob.
type RedisConceptCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisConceptCache(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *RedisConceptCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CATALOG] ", log.LstdFlags)
	}
	return &RedisConceptCache{rdb: rdb, ttl: ttl, logger: logger}
}

func conceptKey(topic string) string {
	return "catalog:concept:" + strings.ToLower(strings.TrimSpace(topic))
}

func (c *RedisConceptCache) GetConcept(ctx context.Context, topic string) (string, bool) {
	val, err := c.rdb.Get(ctx, conceptKey(topic)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("concept cache get: %v", err)
		}
		return "", false
	}
	return val, true
}

func (c *RedisConceptCache) PutConcept(ctx context.Context, topic, id string) {
	if err := c.rdb.Set(ctx, conceptKey(topic), id, c.ttl).Err(); err != nil {
		c.logger.Printf("concept cache set: %v", err)
	}
}
