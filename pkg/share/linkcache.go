package share

import (
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// linkCache keeps recently issued signed links. A cached link may be up to
// ttl older than a fresh one, so links shorter than twice the ttl bypass it.
type linkCache struct {
	lru *expirable.LRU[string, string]
	ttl time.Duration
	m   *Metrics
}

func newLinkCache(size int, ttl time.Duration, m *Metrics) *linkCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &linkCache{
		lru: expirable.NewLRU[string, string](size, nil, ttl),
		ttl: ttl,
		m:   m,
	}
}

func linkKey(provider, path string, minutes int) string {
	return provider + "\x00" + path + "\x00" + strconv.Itoa(minutes)
}

func (c *linkCache) cacheable(minutes int) bool {
	return c != nil && time.Duration(minutes)*time.Minute >= 2*c.ttl
}

func (c *linkCache) get(provider, path string, minutes int) (string, bool) {
	if !c.cacheable(minutes) {
		return "", false
	}
	url, ok := c.lru.Get(linkKey(provider, path, minutes))
	if ok {
		c.m.linkCacheHits.Inc()
	} else {
		c.m.linkCacheMisses.Inc()
	}
	return url, ok
}

func (c *linkCache) add(provider, path string, minutes int, url string) {
	if !c.cacheable(minutes) {
		return
	}
	c.lru.Add(linkKey(provider, path, minutes), url)
}

// forget drops every cached link of the object.
func (c *linkCache) forget(provider, path string) {
	if c == nil {
		return
	}
	prefix := provider + "\x00" + path + "\x00"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}
