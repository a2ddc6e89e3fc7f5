package scores

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a cached scoreboard stays fresh.
const DefaultTTL = time.Hour

// fetcher is the provider call the cache wraps. Satisfied by
// (*Client).Scoreboard.
type fetcher func(ctx context.Context, week int) (*Scoreboard, error)

// Cache is the week-keyed scoreboard cache.
//
// It is the only cross-user shared mutable state in the core. Reads are
// concurrent; a refresh race between two users on the same stale week is
// tolerated — last writer wins, the responses are idempotent reads of
// public data.
type Cache struct {
	mu      sync.RWMutex
	entries map[int]cacheEntry

	ttl         time.Duration
	seasonStart time.Time
	fetch       fetcher
	logger      *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	board     *Scoreboard
	fetchedAt time.Time
}

// NewCache wraps a client with a TTL cache keyed by competition week.
func NewCache(client *Client, seasonStart time.Time, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:     make(map[int]cacheEntry),
		ttl:         ttl,
		seasonStart: seasonStart,
		fetch:       client.Scoreboard,
		logger:      logger.With("component", "scorecache"),
		now:         time.Now,
	}
}

// Get returns the scoreboard for a week. Week 0 resolves to the current
// week from the season calendar.
//
// A fresh entry is served without a provider call. A missing or expired
// entry triggers exactly one refetch attempt; if that fails and a stale
// entry exists, the stale value is returned annotated as stale, because
// hour-old scores beat an error for the user. With no entry at all the
// provider error surfaces.
func (c *Cache) Get(ctx context.Context, week int) (*Scoreboard, error) {
	if week <= 0 {
		week = WeekFor(c.now(), c.seasonStart)
	}

	c.mu.RLock()
	entry, ok := c.entries[week]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.board, nil
	}

	board, err := c.fetch(ctx, week)
	if err != nil {
		if ok {
			c.logger.Warn("refetch failed, serving stale scoreboard",
				"week", week,
				"age", c.now().Sub(entry.fetchedAt),
				"error", err,
			)
			stale := *entry.board
			stale.Stale = true
			return &stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[week] = cacheEntry{board: board, fetchedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug("scoreboard cached", "week", week, "games", len(board.Games))
	return board, nil
}

// CurrentWeek returns the competition week for the current date.
func (c *Cache) CurrentWeek() int {
	return WeekFor(c.now(), c.seasonStart)
}
