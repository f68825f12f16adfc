package redis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/organizer/pkg/metrics"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock represents a distributed lock
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// Locker provides distributed locking operations
type Locker struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
}

// NewLocker creates a Locker whose locks expire after ttl and whose Hold waits at most timeout
func NewLocker(client *Client, keyPrefix string, ttl, timeout time.Duration) *Locker {
	if keyPrefix == "" {
		keyPrefix = "organizer:lock:"
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		timeout:   timeout,
	}
}

// Acquire attempts to acquire a lock once
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	lockValue := uuid.New().String()

	// SET NX: only if not exists
	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", key)

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// TryAcquire attempts to acquire a lock, retrying with backoff
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for time.Now().Before(deadline) {
		lock, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = min(backoff*2, 500*time.Millisecond)
		}
	}

	return nil, ErrLockNotAcquired
}

// Hold serializes work on key across instances. The returned release never fails: a lock that
// already expired is only logged.
func (l *Locker) Hold(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	lock, err := l.TryAcquire(ctx, key, l.ttl, l.timeout)
	metrics.RecordLockWait(time.Since(start).Seconds())
	if errors.Is(err, ErrLockNotAcquired) {
		return nil, httperror.NewHTTPError(http.StatusConflict, "submission is being modified by another request, try again")
	}
	if err != nil {
		l.client.logger.WithContext(ctx).WithError(err).Errorf("Failed to acquire lock %s", key)
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire lock")
	}

	return func() {
		// the caller's ctx may be cancelled by now
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			l.client.logger.WithContext(ctx).WithError(err).Warnf("Failed to release lock %s", key)
		}
	}, nil
}

// Release releases the lock if it is still owned by this holder
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}
