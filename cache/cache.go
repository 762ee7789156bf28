// Package cache memoizes resolution and pricing results.
//
// A Cache backend stores opaque bytes and can drop everything at once.
// Resolution wraps a backend with JSON encoding, request-level bypass and a
// degraded mode: when an invalidation fails the wrapper stops trusting the
// backend and recomputes every read until a later invalidation succeeds.
package cache

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Cache is a byte-oriented backend.
type Cache interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// InvalidateAll drops every entry.
	InvalidateAll(ctx context.Context) error
}

// Key kinds.
const (
	KindSetting = "setting"
	KindPrice   = "price"
)

// Key hashes kind and parts into a fixed-width key. Parts are separated by
// a NUL byte so ("ab", "c") and ("a", "bc") differ.
func Key(kind string, parts ...string) string {
	d := xxhash.New()
	_, _ = d.WriteString(kind)
	for _, p := range parts {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(p)
	}
	return kind + ":" + strconv.FormatUint(d.Sum64(), 16)
}

type bypassKey struct{}

// WithoutCache returns a context whose reads skip the cache entirely.
// Callers that just wrote use it to read their own write.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// Bypassed reports whether ctx was created by WithoutCache.
func Bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}
