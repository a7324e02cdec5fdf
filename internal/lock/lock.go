// Package lock serializes writes that share an identity, such as the
// allocations of a single cost pool.
package lock

import (
	"context"
	"errors"
)

var (
	ErrLockTimeout = errors.New("lock_timeout")
	ErrEmptyKey    = errors.New("lock_key_empty")
)

// Locker hands out exclusive ownership of a key until release is called.
// Release is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
