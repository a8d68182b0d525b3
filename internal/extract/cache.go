package extract

import "mutostats/internal/domain"

// Cache memoizes extracted series for one analysis session. It is owned
// by whoever runs the session and is never shared or persisted.
type Cache struct {
	entries map[domain.SeriesKey]domain.Series
	hits    int
	misses  int
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[domain.SeriesKey]domain.Series)}
}

// GetOrExtract returns the cached series for key, calling fn and
// storing its result on a miss. A failed fn leaves the cache as it was.
func (c *Cache) GetOrExtract(key domain.SeriesKey, fn func() (domain.Series, error)) (domain.Series, error) {
	if s, ok := c.entries[key]; ok {
		c.hits++
		return s, nil
	}
	c.misses++
	s, err := fn()
	if err != nil {
		return domain.Series{}, err
	}
	c.entries[key] = s
	return s, nil
}

// Len returns the number of cached series
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns hit and miss counts
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
