package cache

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// SetupCache connects the shared redis client. A failed ping is logged, not
// fatal, so the app still starts while the cache comes up.
func SetupCache(addr, password string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // sessions use DB 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if pong, err := client.Ping(ctx).Result(); err != nil {
		fiberlog.Warnf("[Cache] Could not connect to redis at %s: %v", addr, err)
	} else {
		fiberlog.Infof("[Cache] Connected to redis at %s: %s", addr, pong)
	}
	return client
}
