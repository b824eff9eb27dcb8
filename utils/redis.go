package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kswpuk/portal-api/config"
)

// Rdb is the shared Redis client, set by InitRedis
var Rdb *redis.Client

// InitRedis connects the shared Redis client and pings it
func InitRedis(cfg *config.Config) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	log.Println("✅ Connected to Redis")
	return nil
}

// AcquireLock takes a best-effort distributed lock via SETNX. Used by the
// scheduled jobs so only one instance runs a sweep, and by the notification
// consumer to dedupe replayed allocation events.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if Rdb == nil {
		// No redis configured: behave as if the lock was won so a
		// single-instance deployment still works.
		return true, nil
	}
	ok, err := Rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock drops a lock taken with AcquireLock
func ReleaseLock(ctx context.Context, key string) {
	if Rdb == nil {
		return
	}
	if err := Rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("⚠️ Failed to release lock %s: %v", key, err)
	}
}
