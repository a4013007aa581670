package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

var ErrLockTimeout = fmt.Errorf("cart lease not acquired: %w", domain.ErrLockTimeout)

// Lease is an exclusive, time-bounded grant on one cart identifier.
type Lease struct {
	CartID     string
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Guard serializes mutations per cart across every process sharing the backing store.
type Guard interface {
	// Acquire blocks for at most wait. It returns ErrLockTimeout when the lease
	// is still held by someone else after wait has elapsed.
	Acquire(ctx context.Context, cartID string, wait time.Duration) (*Lease, error)
	// Release is idempotent and never removes a lease held under another token.
	Release(ctx context.Context, l *Lease) error
}
