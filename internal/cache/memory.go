package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time // zero means no expiry
}

// Memory is an in-process Store. Values are stored JSON-encoded so callers
// see the same copy semantics as with Redis.
type Memory struct {
	mu  sync.Mutex
	m   map[string]memEntry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]memEntry), now: time.Now}
}

func (c *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := checkSet(key, value, ttl); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	e := memEntry{data: data}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Memory) Get(_ context.Context, key string, dest any) error {
	if key == "" {
		return ErrKeyEmpty
	}
	c.mu.Lock()
	e, ok := c.m[key]
	if ok && !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.m, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
	return nil
}

// Len is the number of entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
