// Package lock provides per-identity locking for operations that must not
// run concurrently for the same user.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the
// timeout period.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// identityMutex wraps a mutex with reference counting for cleanup.
type identityMutex struct {
	mu       sync.Mutex
	refCount int
}

// IdentityLock serializes operations per user identifier. It prevents
// check-then-act races that the store alone does not close.
type IdentityLock struct {
	locks sync.Map // map[string]*identityMutex
	pool  sync.Pool
}

// NewIdentityLock creates a new IdentityLock instance.
func NewIdentityLock() *IdentityLock {
	return &IdentityLock{
		pool: sync.Pool{
			New: func() any {
				return &identityMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given identity.
func (il *IdentityLock) getLock(identity string) *identityMutex {
	if v, ok := il.locks.Load(identity); ok {
		return v.(*identityMutex)
	}

	newLock := il.pool.Get().(*identityMutex)
	newLock.refCount = 0

	actual, loaded := il.locks.LoadOrStore(identity, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		il.pool.Put(newLock)
	}
	return actual.(*identityMutex)
}

// Lock acquires the lock for an identity.
func (il *IdentityLock) Lock(identity string) {
	lock := il.getLock(identity)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for an identity.
func (il *IdentityLock) Unlock(identity string) {
	if v, ok := il.locks.Load(identity); ok {
		lock := v.(*identityMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (il *IdentityLock) TryLock(identity string) bool {
	lock := il.getLock(identity)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock with a timeout.
// Returns true if the lock was acquired, false if timeout occurred.
func (il *IdentityLock) LockWithTimeout(ctx context.Context, identity string, timeout time.Duration) bool {
	lock := il.getLock(identity)

	done := make(chan struct{})

	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will eventually acquire the lock; release
		// it again once it does.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the identity's lock.
func (il *IdentityLock) WithLock(identity string, fn func() error) error {
	il.Lock(identity)
	defer il.Unlock(identity)
	return fn()
}

// WithLockContext executes fn while holding the identity's lock, with
// context support for cancellation.
func (il *IdentityLock) WithLockContext(ctx context.Context, identity string, timeout time.Duration, fn func() error) error {
	if !il.LockWithTimeout(ctx, identity, timeout) {
		return ErrLockTimeout
	}
	defer il.Unlock(identity)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked checks if an identity currently has an active lock.
// This is a point-in-time check and may change immediately after.
func (il *IdentityLock) IsLocked(identity string) bool {
	if v, ok := il.locks.Load(identity); ok {
		lock := v.(*identityMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
