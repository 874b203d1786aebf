package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"spendtrack/internal/core"
)

// StatsCache caches per-user aggregation results. Cache keys embed a per-user
// generation counter, so invalidating a user after a write is a single counter
// bump; entries built under the old generation become unreachable and age out
// through the LRU and TTL.
type StatsCache struct {
	mu   sync.Mutex
	gens map[int64]uint64

	totals     Cache[float64]
	breakdowns Cache[[]core.CategoryTotal]
	expenses   Cache[[]core.Expense]
	cleaners   []Cleaner
}

// NewStatsCache sizes each underlying cache at maxSize entries with the given TTL.
func NewStatsCache(maxSize int, ttl time.Duration) *StatsCache {
	totals := NewLRUCache[float64](maxSize, ttl)
	breakdowns := NewLRUCache[[]core.CategoryTotal](maxSize, ttl)
	expenses := NewLRUCache[[]core.Expense](maxSize, ttl)
	return &StatsCache{
		gens:       make(map[int64]uint64),
		totals:     totals,
		breakdowns: breakdowns,
		expenses:   expenses,
		cleaners:   []Cleaner{totals, breakdowns, expenses},
	}
}

// Invalidate drops all cached results for the user by advancing their generation.
func (c *StatsCache) Invalidate(userID int64) {
	c.mu.Lock()
	c.gens[userID]++
	c.mu.Unlock()
}

// CleanExpired sweeps expired entries from all underlying caches.
func (c *StatsCache) CleanExpired() int {
	removed := 0
	for _, cl := range c.cleaners {
		removed += cl.CleanExpired()
	}
	return removed
}

func (c *StatsCache) key(kind string, userID int64, parts ...string) string {
	c.mu.Lock()
	gen := c.gens[userID]
	c.mu.Unlock()
	return fmt.Sprintf("%s:%d:g%d:%s", kind, userID, gen, strings.Join(parts, ":"))
}

// GetTotal looks up a cached scalar total for the user.
func (c *StatsCache) GetTotal(kind string, userID int64, parts ...string) (float64, bool) {
	return c.totals.Get(c.key(kind, userID, parts...))
}

// SetTotal stores a scalar total for the user.
func (c *StatsCache) SetTotal(kind string, userID int64, total float64, parts ...string) {
	c.totals.Set(c.key(kind, userID, parts...), total)
}

// GetBreakdown looks up a cached category breakdown for the user.
func (c *StatsCache) GetBreakdown(kind string, userID int64, parts ...string) ([]core.CategoryTotal, bool) {
	return c.breakdowns.Get(c.key(kind, userID, parts...))
}

// SetBreakdown stores a category breakdown for the user.
func (c *StatsCache) SetBreakdown(kind string, userID int64, rows []core.CategoryTotal, parts ...string) {
	c.breakdowns.Set(c.key(kind, userID, parts...), rows)
}

// GetExpenses looks up a cached expense list for the user.
func (c *StatsCache) GetExpenses(kind string, userID int64, parts ...string) ([]core.Expense, bool) {
	return c.expenses.Get(c.key(kind, userID, parts...))
}

// SetExpenses stores an expense list for the user.
func (c *StatsCache) SetExpenses(kind string, userID int64, rows []core.Expense, parts ...string) {
	c.expenses.Set(c.key(kind, userID, parts...), rows)
}
