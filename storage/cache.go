package storage

import (
	"context"
	"fmt"

	"github.com/coocood/freecache"

	"github.com/janelia-flyem/voxchunk/dvid"
)

// Cached wraps a KeyValueDB with an in-memory cache of serialized values.
// Values too large for the cache are passed through uncached.
type Cached struct {
	db    KeyValueDB
	cache *freecache.Cache
	log   dvid.Logger
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// NewCached returns db fronted by a cache of roughly numBytes.
func NewCached(db KeyValueDB, numBytes int, logger dvid.Logger) *Cached {
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	logger.Infof("Created freecache of ~ %s in front of %s\n", dvid.HumanBytes(numBytes), db)
	return &Cached{
		db:    db,
		cache: freecache.NewCache(numBytes),
		log:   logger,
	}
}

func (c *Cached) String() string {
	return fmt.Sprintf("cached %s", c.db)
}

// Get returns a cached value or reads through to the wrapped database.
func (c *Cached) Get(ctx context.Context, k Key) ([]byte, error) {
	v, err := c.cache.Get(k)
	if err == nil {
		return v, nil
	}
	if err != freecache.ErrNotFound {
		return nil, err
	}
	v, err = c.db.Get(ctx, k)
	if err != nil || v == nil {
		return v, err
	}
	c.set(k, v)
	return v, nil
}

// Put writes through to the wrapped database and caches the value.
func (c *Cached) Put(ctx context.Context, k Key, v []byte) error {
	if err := c.db.Put(ctx, k, v); err != nil {
		c.cache.Del(k)
		return err
	}
	c.set(k, v)
	return nil
}

// Delete removes the key from the cache and the wrapped database.
func (c *Cached) Delete(ctx context.Context, k Key) error {
	c.cache.Del(k)
	return c.db.Delete(ctx, k)
}

// Close clears the cache and closes the wrapped database.
func (c *Cached) Close() error {
	c.cache.Clear()
	return c.db.Close()
}

// Stats returns hit and miss counts since creation.
func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Hits:    c.cache.HitCount(),
		Misses:  c.cache.MissCount(),
		Entries: c.cache.EntryCount(),
	}
}

func (c *Cached) set(k Key, v []byte) {
	if err := c.cache.Set(k, v, 0); err != nil {
		c.log.Debugf("Not caching %s (%s): %v\n", k, dvid.HumanBytes(len(v)), err)
	}
}

// Keys passes through to the wrapped database when it can list keys.
func (c *Cached) Keys(ctx context.Context, t KeyType) ([]Key, error) {
	lister, ok := c.db.(Lister)
	if !ok {
		return nil, fmt.Errorf("listing keys in %s: %w", c.db, ErrNotListable)
	}
	return lister.Keys(ctx, t)
}
