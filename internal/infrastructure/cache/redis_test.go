package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cocopet/backend/internal/domain"
)

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client)
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	key := "shortlink:https://maps.app.goo.gl/abc"
	value := "https://www.google.com/maps/?q=21.1619,-86.8515"

	if err := cache.Set(ctx, key, value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != value {
		t.Errorf("Get() = %v, want %v", got, value)
	}
}

func TestRedisCache_Size(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	if got := cache.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0", got)
	}

	if err := cache.Set(ctx, "shortlink:a", "one", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "shortlink:b", "two", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if got := cache.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache := newTestRedisCache(t)

	_, err := cache.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_SetWithoutTTL(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "permanent", "value", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "permanent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "value" {
		t.Errorf("Get() = %v, want value", got)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := cache.Get(ctx, "key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Exists(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "key")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true, want false before Set")
	}

	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	exists, err = cache.Exists(ctx, "key")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false, want true after Set")
	}
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-redis-url")
	if err == nil {
		t.Fatal("NewRedisCache() error = nil, want parse error")
	}
}
