package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func stubRedisSeams(t *testing.T) *string {
	t.Helper()

	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
		Client = nil
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return nil
	}
	return &capturedAddr
}

func TestInitRedisWithCustomAddr(t *testing.T) {
	capturedAddr := stubRedisSeams(t)

	InitRedis(context.Background(), "redis:9999")
	if *capturedAddr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", *capturedAddr)
	}
}

func TestInitRedisDefaults(t *testing.T) {
	capturedAddr := stubRedisSeams(t)

	InitRedis(context.Background(), "")
	if *capturedAddr != "localhost:6379" {
		t.Fatalf("expected default addr, got %s", *capturedAddr)
	}
}

func TestInitRedisParsesURL(t *testing.T) {
	capturedAddr := stubRedisSeams(t)

	InitRedis(context.Background(), "redis://cache.internal:6380")
	if *capturedAddr != "cache.internal:6380" {
		t.Fatalf("expected parsed addr, got %s", *capturedAddr)
	}
}
