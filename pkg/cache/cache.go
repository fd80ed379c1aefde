// Package cache provides the read-cache abstraction the ledger engines
// invalidate on every mutation, with in-memory and Redis backends.
package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cache is a TTL key-value store. Lookups degrade to a miss on backend
// failure; they never fail the request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string)
}

// Key builds a deterministic cache key from an endpoint, a scope (kept in
// clear text so prefix invalidation works) and the request parameters.
func Key(endpoint, scope string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
		b.WriteByte('&')
	}
	digest := md5.Sum([]byte(b.String()))
	return fmt.Sprintf("%s%x", Prefix(endpoint, scope), digest)
}

// Prefix is the invalidation prefix covering every Key built for the same
// endpoint and scope.
func Prefix(endpoint, scope string) string {
	return endpoint + ":" + scope + ":"
}
