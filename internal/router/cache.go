package router

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// decisionCache remembers which provider won for a given prompt and task so
// repeated identical requests skip a full ranking pass. Only the winner's
// name is cached; eligibility and fallbacks are recomputed on every hit so
// a cached provider that has since hit its rate limit is not returned.
type decisionCache struct {
	entries *gocache.Cache
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &decisionCache{
		entries: gocache.New(ttl, 10*time.Minute),
	}
}

func cacheKey(prompt, task string) string {
	sum := sha256.Sum256([]byte(prompt + "|" + task))
	return hex.EncodeToString(sum[:])
}

func (c *decisionCache) get(prompt, task string) (string, bool) {
	v, ok := c.entries.Get(cacheKey(prompt, task))
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

func (c *decisionCache) put(prompt, task, provider string) {
	c.entries.SetDefault(cacheKey(prompt, task), provider)
}
