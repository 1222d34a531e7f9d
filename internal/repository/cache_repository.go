package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

// Dashboard cache keys. Teacher dashboards share one entry; student
// dashboards are keyed per user.
const (
	CacheKeyTeacherDashboard = "dashboard:teacher"
	cacheKeyStudentPrefix    = "dashboard:student:"
	cacheKeyDashboardPattern = "dashboard:*"
)

// CacheKeyStudentDashboard returns the cache key for a student's dashboard.
func CacheKeyStudentDashboard(studentID string) string {
	return cacheKeyStudentPrefix + studentID
}

// CacheRepository wraps Redis for dashboard view caching. A nil client
// degrades to a pass-through (every read misses, writes are dropped).
type CacheRepository struct {
	client *redis.Client
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// InvalidateDashboards drops every cached dashboard view. Called after any
// write that changes what a dashboard would show.
func (r *CacheRepository) InvalidateDashboards(ctx context.Context) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, cacheKeyDashboardPattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", iter.Val(), err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan dashboards: %w", err)
	}

	return nil
}
