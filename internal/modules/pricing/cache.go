// README: Quote cache backed by Redis; public previews reuse recent results per package and request.
package pricing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"travelcrm/internal/types"
)

const invalidateBatch = 200

type QuoteCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func NewQuoteCache(redis *redis.Client, prefix string, ttl time.Duration) *QuoteCache {
	return &QuoteCache{redis: redis, prefix: prefix, ttl: ttl}
}

// QuoteKey derives a stable key from everything that can change a quote.
func QuoteKey(prefix string, cmd QuoteCommand) (string, error) {
	raw, err := json.Marshal(struct {
		Request    Request  `json:"r"`
		ShiftID    types.ID `json:"s"`
		PublicOnly bool     `json:"p"`
	}{cmd.Request, cmd.ShiftID, cmd.PublicOnly})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return packageKeyPrefix(prefix, cmd.PackageID) + ":" + hex.EncodeToString(sum[:]), nil
}

func packageKeyPrefix(prefix string, packageID types.ID) string {
	return fmt.Sprintf("%s:quote:%s", prefix, packageID)
}

func (c *QuoteCache) Get(ctx context.Context, cmd QuoteCommand) (Result, bool, error) {
	key, err := QuoteKey(c.prefix, cmd)
	if err != nil {
		return Result{}, false, err
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

func (c *QuoteCache) Set(ctx context.Context, cmd QuoteCommand, res Result) error {
	key, err := QuoteKey(c.prefix, cmd)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops every cached quote of the package.
func (c *QuoteCache) Invalidate(ctx context.Context, packageID types.ID) (int, error) {
	match := packageKeyPrefix(c.prefix, packageID) + ":*"
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, match, invalidateBatch).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
