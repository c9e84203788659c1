package storage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/janelia-flyem/voxchunk/dvid"
)

// DefaultLoadTimeout bounds a single chunk fetch made on behalf of a read.
const DefaultLoadTimeout = 30 * time.Second

// Loader fetches chunks from a Store for a volume.Manager.  Concurrent requests for
// the same chunk share one fetch.
type Loader struct {
	store   Store
	timeout time.Duration
	group   singleflight.Group
	log     dvid.Logger
}

// NewLoader returns a Loader reading from store.  A non-positive timeout uses
// DefaultLoadTimeout.
func NewLoader(store Store, timeout time.Duration, logger dvid.Logger) *Loader {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	return &Loader{store: store, timeout: timeout, log: logger}
}

// LoadChunk returns the stored raw data for c, or nil if the store doesn't hold it.
func (l *Loader) LoadChunk(c dvid.ChunkPoint2d) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.fetch(ctx, c)
}

func (l *Loader) fetch(ctx context.Context, c dvid.ChunkPoint2d) ([]byte, error) {
	v, err, shared := l.group.Do(string(c.Bytes()), func() (interface{}, error) {
		timedLog := dvid.NewTimeLog(l.log)
		data, err := l.store.GetChunk(ctx, c)
		if err == nil {
			timedLog.Debugf("Fetched chunk %s (found %t)", c, data != nil)
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	if shared && data != nil {
		// Each caller gets its own copy since Build may retain it.
		data = append([]byte(nil), data...)
	}
	return data, nil
}

// Builder accepts raw chunk data for chunks that aren't resident.  Both
// volume.Manager and volume.Locked satisfy it.
type Builder interface {
	Has(c dvid.ChunkPoint2d) bool
	BuildIfAbsent(c dvid.ChunkPoint2d, data []byte) (bool, error)
}

// Preload fetches the given chunks from the loader's store with up to workers
// concurrent reads, then builds each found chunk into b.  It returns the number of
// chunks built.  Chunks absent from the store are skipped, as are chunks already
// resident in b, so unsaved writes are never replaced by stored data.
func (l *Loader) Preload(ctx context.Context, b Builder, coords []dvid.ChunkPoint2d, workers int) (int, error) {
	if workers < 1 {
		workers = 1
	}
	timedLog := dvid.NewTimeLog(l.log)
	results := make([][]byte, len(coords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range coords {
		if b.Has(c) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := l.fetch(gctx, c)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("preloading %d chunks: %w", len(coords), err)
	}
	var built int
	for i, data := range results {
		if data == nil {
			continue
		}
		ok, err := b.BuildIfAbsent(coords[i], data)
		if err != nil {
			return built, err
		}
		if ok {
			built++
		} else {
			l.log.Debugf("Chunk %s became resident during preload, kept resident contents\n", coords[i])
		}
	}
	timedLog.Infof("Preloaded %d of %d requested chunks using %d workers", built, len(coords), workers)
	return built, nil
}

// Exporter returns raw chunk data.  Both volume.Manager and volume.Locked satisfy it.
type Exporter interface {
	Export(c dvid.ChunkPoint2d) ([]byte, error)
}

// Save writes the current contents of a resident chunk to store.
func Save(ctx context.Context, store Store, e Exporter, c dvid.ChunkPoint2d) error {
	data, err := e.Export(c)
	if err != nil {
		return err
	}
	return store.PutChunk(ctx, c, data)
}
