package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL bounds how long a cached item survives without invalidation
	DefaultCacheTTL = 8 * time.Hour
)

// CacheService stores JSON values under cache:<key>.
type CacheService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCacheService(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb, ttl: DefaultCacheTTL}
}

// Get reports whether key was found and decoded into dest. A miss is not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.rdb.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, CacheKeyPrefix+key, data, c.ttl).Err()
}

func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, CacheKeyPrefix+key).Err()
}

// ItemSlugKey is the cache key of an item looked up by slug.
func ItemSlugKey(slug string) string {
	return "item:slug:" + slug
}

// CachedItems serves slug lookups from Redis and drops the cached copy when
// the item's image URL is written back. Cache errors fall through to the store.
type CachedItems struct {
	repository.ItemRepository
	cache *CacheService
	log   *logger.Logger
}

func NewCachedItems(repo repository.ItemRepository, cache *CacheService, log *logger.Logger) *CachedItems {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedItems{ItemRepository: repo, cache: cache, log: log}
}

func (c *CachedItems) GetBySlug(ctx context.Context, slug string) (*models.Item, error) {
	var item models.Item
	hit, err := c.cache.Get(ctx, ItemSlugKey(slug), &item)
	if err != nil {
		c.log.Warn("item cache read failed", "slug", slug, "error", err)
	}
	if hit {
		return &item, nil
	}

	found, err := c.ItemRepository.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, ItemSlugKey(slug), found); err != nil {
		c.log.Warn("item cache write failed", "slug", slug, "error", err)
	}
	return found, nil
}

func (c *CachedItems) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	if err := c.ItemRepository.SetQRCodeURL(ctx, id, url); err != nil {
		return err
	}
	item, err := c.ItemRepository.GetByID(ctx, id)
	if err != nil {
		c.log.Warn("item cache invalidation lookup failed", "item_id", id, "error", err)
		return nil
	}
	if err := c.cache.Delete(ctx, ItemSlugKey(item.Slug)); err != nil {
		c.log.Warn("item cache delete failed", "slug", item.Slug, "error", err)
	}
	return nil
}
