package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func (g *geocoder) lookup(key string) (*Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.cache[key]
	if ok {
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", r.Matched))
		copied := *r
		return &copied, true
	}
	return nil, false
}

func (g *geocoder) store(key string, r *Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := *r
	g.cache[key] = &copied
}
