// Package cache provides a small key/value cache with Redis and in-process
// backends, and the composite-grade cache built on top of it.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned when the requested key is not cached.
	ErrMiss = errors.New("cache: key not found")

	ErrConnection    = errors.New("cache: connection failed")
	ErrSerialization = errors.New("cache: serialization failed")
	ErrKeyEmpty      = errors.New("cache: key cannot be empty")
	ErrNilValue      = errors.New("cache: value cannot be nil")
	ErrInvalidTTL    = errors.New("cache: invalid TTL")
)

// Prefix namespaces every key written by this service.
const Prefix = "notenpfad:"

// Store is a JSON value cache.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func checkSet(key string, value any, ttl time.Duration) error {
	switch {
	case key == "":
		return ErrKeyEmpty
	case value == nil:
		return ErrNilValue
	case ttl < 0:
		return ErrInvalidTTL
	}
	return nil
}
