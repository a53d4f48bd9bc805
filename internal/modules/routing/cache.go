// README: Route cache keyed on endpoints and options; cleared wholesale on traffic change.
package routing

import (
	"fmt"
	"sync"

	"courier/internal/types"
)

type routeCache struct {
	mu     sync.Mutex
	max    int
	routes map[string]*Route
}

func newRouteCache(max int) *routeCache {
	if max <= 0 {
		max = 100
	}
	return &routeCache{max: max, routes: make(map[string]*Route)}
}

func cacheKey(start, end types.Point, opts Options) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f|%t|%.2f",
		start.Lng, start.Lat, end.Lng, end.Lat, opts.AvoidCongestion, opts.exponent())
}

func (c *routeCache) get(key string) (*Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.routes[key]
	return r, ok
}

// put evicts everything once the cache outgrows its bound. Wholesale
// clearing matches the invalidation model: entries are only valid between
// traffic ticks anyway.
func (c *routeCache) put(key string, r *Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.routes) >= c.max {
		c.routes = make(map[string]*Route)
	}
	c.routes[key] = r
}

func (c *routeCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = make(map[string]*Route)
}

func (c *routeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}
