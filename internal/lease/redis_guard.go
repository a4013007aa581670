package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Second

// setTimeout bounds one SET NX round trip. It is independent of the wait
// deadline so a SET that Redis applied always reaches its holder.
const setTimeout = 2 * time.Second

// Deletes the lease only while it is still held under the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard keeps one key per leased cart. Waiters subscribe to a release
// channel and fall back to exponential backoff polling, which also covers
// leases that disappear through TTL expiry.
type RedisGuard struct {
	client  *redis.Client
	ttl     time.Duration
	backoff Backoff
	now     func() time.Time
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{
		client:  client,
		ttl:     ttl,
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// WithBackoff replaces the polling schedule.
func (g *RedisGuard) WithBackoff(b Backoff) *RedisGuard {
	g.backoff = b
	return g
}

func (g *RedisGuard) Acquire(ctx context.Context, cartID string, wait time.Duration) (*Lease, error) {
	if cartID == "" {
		return nil, fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}
	if wait <= 0 {
		return nil, fmt.Errorf("lease wait must be positive: %w", domain.ErrInvalidArgument)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	token := uuid.NewString()
	key := leaseKey(cartID)

	l, err := g.tryAcquire(waitCtx, cartID, key, token)
	if l != nil || err != nil {
		return l, g.waitError(ctx, err)
	}

	sub := g.client.Subscribe(waitCtx, releaseChannel(cartID))
	defer sub.Close()

	var released <-chan *redis.Message
	if _, errSub := sub.Receive(waitCtx); errSub == nil {
		released = sub.Channel()
	}

	for attempt := 0; ; attempt++ {
		l, err = g.tryAcquire(waitCtx, cartID, key, token)
		if l != nil || err != nil {
			return l, g.waitError(ctx, err)
		}

		timer := time.NewTimer(g.backoff.Next(attempt))
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return nil, g.waitError(ctx, waitCtx.Err())
		case <-released:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (g *RedisGuard) Release(ctx context.Context, l *Lease) error {
	if l == nil {
		return nil
	}

	n, err := releaseScript.Run(ctx, g.client, []string{leaseKey(l.CartID)}, l.Token).Int()
	if err != nil {
		return fmt.Errorf("redis lease release failed: %w", err)
	}
	if n == 0 {
		// already expired or taken over by another holder
		return nil
	}

	if err := g.client.Publish(ctx, releaseChannel(l.CartID), l.Token).Err(); err != nil {
		return fmt.Errorf("redis lease release notify failed: %w", err)
	}
	return nil
}

func (g *RedisGuard) tryAcquire(ctx context.Context, cartID, key, token string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), setTimeout)
	defer cancel()

	now := g.now()
	ok, err := g.client.SetNX(setCtx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lease acquire failed: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{
		CartID:     cartID,
		Token:      token,
		AcquiredAt: now,
		ExpiresAt:  now.Add(g.ttl),
	}, nil
}

// waitError tells a caller cancellation apart from an exhausted wait bound.
func (g *RedisGuard) waitError(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return err
}

func leaseKey(cartID string) string {
	return fmt.Sprintf("cart-lease:%s", cartID)
}

func releaseChannel(cartID string) string {
	return fmt.Sprintf("cart-lease-released:%s", cartID)
}
