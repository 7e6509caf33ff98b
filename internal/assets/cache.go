// Package assets loads and caches the decoded images a render references.
package assets

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ivlev/scene2video/internal/imaging"
)

type entry struct {
	layer imaging.Layer
	err   error
}

// Cache decodes each asset once and hands out the same immutable layer to
// every caller. It is safe for concurrent use; callers must treat returned
// layers as read-only.
type Cache struct {
	Root    string
	Decoder Decoder
	Log     zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	raw     map[string][]byte
	group   singleflight.Group
}

// NewCache creates a cache resolving relative asset paths against root.
func NewCache(root string, dec Decoder, log zerolog.Logger) *Cache {
	if dec == nil {
		dec = FileDecoder{}
	}
	return &Cache{
		Root:    root,
		Decoder: dec,
		Log:     log,
		entries: make(map[string]entry),
		raw:     make(map[string][]byte),
	}
}

// Preload registers in-memory bytes for key so that Get never touches the
// file system for it. Any cached decode for key is dropped.
func (c *Cache) Preload(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw[key] = data
	delete(c.entries, key)
}

// Get returns the decoded layer for key. Failures are cached as well, so a
// broken asset is reported once and not retried every frame.
func (c *Cache) Get(key string) (imaging.Layer, error) {
	if key == "" {
		return imaging.Layer{}, fmt.Errorf("empty asset path")
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.layer, e.err
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}

		e = c.load(key)
		if e.err != nil {
			c.Log.Warn().Err(e.err).Str("path", key).Msg("asset unavailable")
		}

		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})

	e = v.(entry)
	return e.layer, e.err
}

// Len reports how many assets have been decoded or have failed.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load(key string) entry {
	c.mu.RLock()
	data, ok := c.raw[key]
	c.mu.RUnlock()

	if !ok {
		var err error
		data, err = ReadFile(c.Root, key)
		if err != nil {
			return entry{err: fmt.Errorf("read asset: %w", err)}
		}
	}

	img, err := c.Decoder.Decode(key, data)
	if err != nil {
		return entry{err: err}
	}
	return entry{layer: imaging.NewLayer(img)}
}
