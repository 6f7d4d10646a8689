// Package cache stores solve results keyed by the network, the search
// configuration and the strategy that produced them.
//
// Three backends implement [Cache]:
//   - [FileCache] for the CLI (one JSON file per entry under a directory)
//   - [RedisCache] for the HTTP server and shared deployments
//   - [NullCache] when caching is disabled
//
// Keys are built by a [Keyer]. [DefaultKeyer] hashes the key components so
// that keys have a fixed length regardless of configuration size, and
// [ScopedKeyer] prefixes another keyer for namespace isolation.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long solve results stay cached unless a caller asks for
// something else.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored value and whether the key was present.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}

// ResultKeyOpts identifies the search that produced a result set.
type ResultKeyOpts struct {
	// Strategy is the dispatcher strategy name (greedy, optimal, aco, contracted).
	Strategy string `json:"strategy"`
	// Algorithm is the contracted algorithm; empty for the other strategies.
	Algorithm string `json:"algorithm,omitempty"`
	// ConfigHash is the [Hash] of the encoded search configuration.
	ConfigHash string `json:"config_hash"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey returns the key for the result set of a solve over the
	// network whose encoding hashes to networkHash.
	ResultKey(networkHash string, opts ResultKeyOpts) string
}

// DefaultKeyer produces "results:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey implements [Keyer].
func (DefaultKeyer) ResultKey(networkHash string, opts ResultKeyOpts) string {
	return hashKey("results", networkHash, opts)
}
