package dimensions

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
)

// ttlCache wraps an LRU of hash→id with a re-validation TTL: entries are
// never evicted by staleness, only re-checked against the database the
// next time they are read after the deadline passes. This keeps the
// cache correct even if another process updates a row out from under us,
// without paying a database round trip on every hit.
type ttlCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	ids      *lru.Cache[string, int64]
	deadline *lru.Cache[string, time.Time]
}

func newTTLCache(size int, ttl time.Duration, now func() time.Time) *ttlCache {
	ids, _ := lru.New[string, int64](size)
	deadlines, _ := lru.New[string, time.Time](size)
	return &ttlCache{ttl: ttl, now: now, ids: ids, deadline: deadlines}
}

// get returns (id, fresh, found). found is true if an entry exists at
// all; fresh is true if it is within its TTL window and safe to use
// without re-validating against the database.
func (c *ttlCache) get(hash string) (id int64, fresh, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, found = c.ids.Get(hash)
	if !found {
		return 0, false, false
	}
	deadline, _ := c.deadline.Get(hash)
	fresh = c.now().Before(deadline)
	return id, fresh, true
}

func (c *ttlCache) put(hash string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids.Add(hash, id)
	c.deadline.Add(hash, c.now().Add(c.ttl))
}

func (c *ttlCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids.Len()
}

func (c *ttlCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids.Purge()
	c.deadline.Purge()
}
