package surrealair

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled statements kept by default.
const DefaultCacheSize = 256

// stmtCache stores compiled statements keyed by their source.
var stmtCache = newStatementCache(DefaultCacheSize)

// statementCache is a bounded cache of compiled statements. Statements are
// immutable so one cached Statement may be handed to any number of callers.
// A nil lru disables caching.
//
// The mutex guards replacing the lru, the lru itself is safe for concurrent
// use.
type statementCache struct {
	mutex sync.RWMutex
	lru   *lru.Cache[string, *Statement]
}

func newStatementCache(size int) *statementCache {
	sc := &statementCache{}
	if err := sc.resize(size); err != nil {
		panic(err)
	}
	return sc
}

func (sc *statementCache) get(src string) (*Statement, bool) {
	sc.mutex.RLock()
	c := sc.lru
	sc.mutex.RUnlock()
	if c == nil {
		return nil, false
	}
	s, ok := c.Get(src)
	if ok {
		logger().Debug("statement cache hit", "size", c.Len())
	} else {
		logger().Debug("statement cache miss", "size", c.Len())
	}
	return s, ok
}

func (sc *statementCache) add(src string, s *Statement) {
	sc.mutex.RLock()
	c := sc.lru
	sc.mutex.RUnlock()
	if c == nil {
		return
	}
	if evicted := c.Add(src, s); evicted {
		logger().Debug("statement cache eviction", "size", c.Len())
	}
}

func (sc *statementCache) len() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	if sc.lru == nil {
		return 0
	}
	return sc.lru.Len()
}

// resize changes the capacity of the cache, keeping the most recently used
// statements. A size of zero disables the cache.
func (sc *statementCache) resize(size int) error {
	if size < 0 {
		return fmt.Errorf("cannot resize statement cache: negative size %d", size)
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	switch {
	case size == 0:
		sc.lru = nil
	case sc.lru == nil:
		c, err := lru.New[string, *Statement](size)
		if err != nil {
			return fmt.Errorf("cannot resize statement cache: %w", err)
		}
		sc.lru = c
	default:
		sc.lru.Resize(size)
	}
	return nil
}

// SetCacheSize sets how many compiled statements [Compile] keeps. A size of
// zero disables caching.
func SetCacheSize(size int) error {
	return stmtCache.resize(size)
}
