package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"invomitra/internal/models"
)

// CacheService defines cache operations used by the request path.
type CacheService interface {
	// Subscriber status lookups
	GetSubscriber(ctx context.Context, email string) (*models.Subscriber, error)
	SetSubscriber(ctx context.Context, subscriber *models.Subscriber, ttl time.Duration) error
	DeleteSubscriber(ctx context.Context, email string) error

	// Dashboard aggregates, stored as JSON under an analytics key
	GetAnalytics(ctx context.Context, key string, dst interface{}) (bool, error)
	SetAnalytics(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient builds a client, accepting either host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int, logger *zap.Logger) *redis.Client {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err == nil {
			client = redis.NewClient(opts)
		} else {
			logger.Warn("invalid redis url, falling back to address", zap.Error(err))
		}
	}
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.Error(err))
	}
	return client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func subscriberKey(email string) string {
	return fmt.Sprintf("invomitra:subscriber:%s", strings.ToLower(email))
}

func (r *redisCacheService) GetSubscriber(ctx context.Context, email string) (*models.Subscriber, error) {
	data, err := r.client.Get(ctx, subscriberKey(email)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var subscriber models.Subscriber
	if err := json.Unmarshal(data, &subscriber); err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *redisCacheService) SetSubscriber(ctx context.Context, subscriber *models.Subscriber, ttl time.Duration) error {
	data, err := json.Marshal(subscriber)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, subscriberKey(subscriber.Email), data, ttl).Err()
}

func (r *redisCacheService) DeleteSubscriber(ctx context.Context, email string) error {
	return r.client.Del(ctx, subscriberKey(email)).Err()
}

func analyticsKey(key string) string {
	return "invomitra:analytics:" + key
}

// GetAnalytics decodes the cached value into dst. A miss reports false.
func (r *redisCacheService) GetAnalytics(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, analyticsKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) SetAnalytics(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, analyticsKey(key), data, ttl).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("invomitra:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
