// Package usage stores per-user assignment counters.
package usage

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
)

// MemoryCounter keeps usage counts in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

// Increment adds one and returns the new count.
func (c *MemoryCounter) Increment(_ context.Context, userID, period string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(userID, period)
	c.counts[k]++
	return c.counts[k], nil
}

// Get returns the current count.
func (c *MemoryCounter) Get(_ context.Context, userID, period string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key(userID, period)], nil
}

func key(userID, period string) string {
	return "tutora:usage:" + period + ":" + userID
}

var _ domain.UsageCounter = (*MemoryCounter)(nil)
