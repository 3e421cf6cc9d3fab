package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TextCache keeps extracted document text per instance, keyed by document id.
// Object keys are never rewritten, so an entry only goes stale by TTL.
type TextCache struct {
	cache *expirable.LRU[string, string]
}

// NewTextCache returns nil when size is not positive; a nil cache is valid and never hits.
func NewTextCache(size int, ttl time.Duration) *TextCache {
	if size <= 0 {
		return nil
	}
	return &TextCache{cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *TextCache) Get(documentID string) (string, bool) {
	if c == nil {
		return "", false
	}
	text, ok := c.cache.Get(documentID)
	if ok {
		textCacheHits.Inc()
		return text, true
	}
	textCacheMisses.Inc()
	return "", false
}

func (c *TextCache) Set(documentID, text string) {
	if c == nil {
		return
	}
	c.cache.Add(documentID, text)
}

func (c *TextCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
