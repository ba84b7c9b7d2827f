// Package balance holds the snapshot cache and the delta derivation used for
// "X → Y" confirmation displays. Balances are always authoritative from the
// backend; nothing here computes a balance.
package balance

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// Fetcher is the read side of the backend the cache refreshes from.
type Fetcher interface {
	GetBalances(ctx context.Context, entityID int64) (*models.Balances, error)
}

// Cache is a read-through cache of per-entity balance snapshots. Entries are
// replaced wholesale, never mutated. There is no transactional isolation:
// concurrent refreshes for the same entity are last-write-wins.
type Cache struct {
	fetch Fetcher
	log   *zap.Logger

	mu          sync.Mutex
	entries     map[int64]*models.Balances
	subscribers []func(entityID int64)
}

// NewCache builds a cache over the given fetcher. A nil logger is replaced
// with a no-op one.
func NewCache(fetch Fetcher, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		fetch:   fetch,
		log:     log,
		entries: make(map[int64]*models.Balances),
	}
}

// Subscribe registers a callback fired after an entity's entry is
// invalidated, so dependent views can refetch. Callbacks run synchronously on
// the invalidating goroutine and must not call back into the cache.
func (c *Cache) Subscribe(fn func(entityID int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Get returns the cached snapshot for an entity, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, entityID int64) (*models.Balances, error) {
	c.mu.Lock()
	if b, ok := c.entries[entityID]; ok {
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx, entityID)
}

// Peek returns the cached snapshot without fetching, or nil on a miss.
func (c *Cache) Peek(entityID int64) *models.Balances {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[entityID]
}

// Refresh fetches a fresh snapshot and stores it. The fetch happens outside
// the lock; whichever concurrent refresh resolves last wins the entry.
func (c *Cache) Refresh(ctx context.Context, entityID int64) (*models.Balances, error) {
	b, err := c.fetch.GetBalances(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("refresh balances for entity %d: %w", entityID, err)
	}
	c.mu.Lock()
	c.entries[entityID] = b
	c.mu.Unlock()
	return b, nil
}

// Invalidate drops the entity's entry and signals subscribers. The next Get
// observes post-transition balances.
func (c *Cache) Invalidate(entityID int64) {
	c.mu.Lock()
	delete(c.entries, entityID)
	subs := make([]func(int64), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	c.log.Debug("balance cache invalidated", zap.Int64("entity_id", entityID))
	for _, fn := range subs {
		fn(entityID)
	}
}
