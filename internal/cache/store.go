package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by a Store when the key is absent or expired
	ErrMiss = errors.New("cache: key not found")
	// ErrClosed is returned by a Store used after Close
	ErrClosed = errors.New("cache: store closed")
)

// Store is the raw keyed byte storage behind the result cache. An expired
// entry must be indistinguishable from one that was never set.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}
