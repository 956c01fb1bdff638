package relkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching fetch results. Implement it with
// whatever backing store fits (Redis, Memcached, in-process); a nil
// Cache disables caching entirely.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
}

// CacheKey identifies a memoizable fetch: the same record type, operation
// shape, and bound filter/order/range values.
type CacheKey struct {
	Table      string
	Operation  string
	Predicates string
	OrderBy    string
	Limit      int
	Offset     int
	Args       []any
}

// String returns the cache key's string form. Args are folded into the
// key via a msgpack-encoded digest rather than a naive %v join, so that
// values with inconsistent Go string formatting (time.Time, []byte,
// nested maps) still produce a stable, collision-resistant key.
func (k CacheKey) String() string {
	s := k.Table + ":" + k.Operation + ":" + k.Predicates + ":" + k.OrderBy
	if d := k.argsDigest(); d != "" {
		s += ":" + d
	}
	return s
}

func (k CacheKey) argsDigest() string {
	if len(k.Args) == 0 {
		return ""
	}
	b, err := msgpack.Marshal(k.Args)
	if err != nil {
		// Fall back to a key that can never collide with a real digest.
		return "!"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
