package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

// Writes the entry unless a commit newer than its version has been recorded.
var setScript = redis.NewScript(`
local floor = redis.call("GET", KEYS[2])
if floor and tonumber(floor) > tonumber(ARGV[2]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// Drops the entry and raises the version floor, never lowering it.
var invalidateScript = redis.NewScript(`
redis.call("DEL", KEYS[1])
local floor = redis.call("GET", KEYS[2])
if (not floor) or tonumber(floor) < tonumber(ARGV[1]) then
	redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
else
	redis.call("PEXPIRE", KEYS[2], ARGV[2])
end
return 1
`)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = DefaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache holds read views of carts. Writes always go to the cart
// store; entries are evicted after every commit.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return e.toCart()
}

func (r RedisCache) Set(ctx context.Context, cart *domain.Cart) error {
	e, err := entryFromCart(cart)
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// spread expiry so carts cached together do not expire together
	jitter := time.Duration(rand.Int64N(int64(r.baseTTL/3) + 1))
	keys := []string{cacheKey(cart.ID), floorKey(cart.ID)}
	err = setScript.Run(ctx, r.client, keys, data, cart.Version, (r.baseTTL + jitter).Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate evicts the cart after a commit of version. A read that loaded
// an older version before the commit can no longer put it back.
func (r RedisCache) Invalidate(ctx context.Context, cartID string, version int64) error {
	// outlives any entry written before the commit
	floorTTL := 2 * r.baseTTL
	keys := []string{cacheKey(cartID), floorKey(cartID)}
	if err := invalidateScript.Run(ctx, r.client, keys, version, floorTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, cacheKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func floorKey(cartID string) string {
	return fmt.Sprintf("cart-version-floor:%s", cartID)
}
