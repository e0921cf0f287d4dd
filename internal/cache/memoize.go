package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Memoize wraps fn so repeated calls within the TTL window return the
// cached result instead of re-invoking fn. The first call executes and
// populates the cache; cache bookkeeping is synchronous, so the same
// wrapper serves direct calls and calls awaited from a goroutine.
func Memoize[T any](svc *Service, key string, ttl time.Duration, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var cached T
		if svc.Get(ctx, key, &cached) {
			return cached, nil
		}

		result, err := fn(ctx)
		if err != nil {
			return result, err
		}
		svc.Set(ctx, key, result, ttl)
		return result, nil
	}
}

// MemoizeWith is the argument-taking variant: keyFn derives the cache
// key from the call argument, so distinct arguments occupy distinct
// cache slots while equal arguments share one.
func MemoizeWith[A, T any](svc *Service, ttl time.Duration, keyFn func(A) string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		key := keyFn(arg)
		var cached T
		if svc.Get(ctx, key, &cached) {
			return cached, nil
		}

		result, err := fn(ctx, arg)
		if err != nil {
			return result, err
		}
		svc.Set(ctx, key, result, ttl)
		return result, nil
	}
}

var defaultService atomic.Pointer[Service]

// SetDefault installs the process-wide cache instance. The singleton
// is a thin wrapper over an explicit Service; construction and backend
// wiring stay with the caller.
func SetDefault(s *Service) {
	defaultService.Store(s)
}

// Default returns the process-wide cache instance, or nil when none
// has been installed.
func Default() *Service {
	return defaultService.Load()
}
