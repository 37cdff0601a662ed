package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Cache is the interface used by fetchers to cache provider responses
// within and across runs
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key from a source ID and the query sent to it
func Key(source model.SourceID, query string) string {
	hash := sha256.Sum256([]byte(string(source) + "\x00" + query))
	return "dossier:v1:" + string(source) + ":" + hex.EncodeToString(hash[:16])
}

// Nop is a cache that stores nothing, used when caching is disabled
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)                { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error  { return nil }
func (Nop) Delete(string) error                      { return nil }
func (Nop) Clear() error                             { return nil }

// FromConfig builds the cache stack dictated by configuration: layered
// memory+disk when a directory is set, memory only otherwise, Nop when
// disabled.
func FromConfig(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	if cfg.Dir != "" {
		return NewLayered(cfg.TTL, cfg.Dir, cfg.TTL)
	}
	return NewMemory(cfg.TTL, 10*time.Minute)
}
