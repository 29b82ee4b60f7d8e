// README: Redis client for the quote cache.
package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func NewRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// RedisAvailable reports whether the server answers a ping. Quotes still work
// without it, only uncached.
func RedisAvailable(ctx context.Context, client *redis.Client) bool {
	return client.Ping(ctx).Err() == nil
}
