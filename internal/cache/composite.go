package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/notenpfad/notenpfad/internal/gradecalc"
)

// CompositeKey is the key holding the rounded composite of a student.
func CompositeKey(studentID string) string {
	return Prefix + "composite:" + studentID
}

// Composites caches /average results per student. A nil *Composites is a
// valid cache that never hits.
type Composites struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewComposites(store Store, ttl time.Duration, log *slog.Logger) *Composites {
	if log == nil {
		log = slog.Default()
	}
	return &Composites{store: store, ttl: ttl, log: log}
}

// Get returns the cached composite. Backend errors count as a miss.
func (c *Composites) Get(ctx context.Context, studentID string) (gradecalc.Composite, bool) {
	if c == nil {
		return gradecalc.Composite{}, false
	}
	var out gradecalc.Composite
	err := c.store.Get(ctx, CompositeKey(studentID), &out)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn("composite cache get", "student", studentID, "err", err)
		}
		return gradecalc.Composite{}, false
	}
	return out, true
}

func (c *Composites) Put(ctx context.Context, studentID string, v gradecalc.Composite) {
	if c == nil {
		return
	}
	if err := c.store.Set(ctx, CompositeKey(studentID), v, c.ttl); err != nil {
		c.log.Warn("composite cache set", "student", studentID, "err", err)
	}
}

// Invalidate drops the cached composite; call after any grade change.
func (c *Composites) Invalidate(ctx context.Context, studentID string) {
	if c == nil {
		return
	}
	if err := c.store.Delete(ctx, CompositeKey(studentID)); err != nil {
		c.log.Warn("composite cache delete", "student", studentID, "err", err)
	}
}
