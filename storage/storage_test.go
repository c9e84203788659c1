package storage_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
	"github.com/janelia-flyem/voxchunk/storage/bucket"
	"github.com/janelia-flyem/voxchunk/volume"
)

func newMemDB() storage.KeyValueDB {
	return bucket.New("mem://", memblob.OpenBucket(nil), nil)
}

func openStore(t *testing.T, db storage.KeyValueDB) *storage.ChunkStore {
	t.Helper()
	store, err := storage.Open(context.Background(), db, dvid.Snappy, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func chunkData(value byte) []byte {
	data := make([]byte, chunk.Full)
	data[chunk.LinearIndex(0, 0, 0)] = value
	return data
}

// countingStore counts GetChunk calls and can block them until released.
type countingStore struct {
	storage.Store
	gets    int32
	release chan struct{}
}

func (s *countingStore) GetChunk(ctx context.Context, c dvid.ChunkPoint2d) ([]byte, error) {
	atomic.AddInt32(&s.gets, 1)
	if s.release != nil {
		<-s.release
	}
	return s.Store.GetChunk(ctx, c)
}

func TestChunkKeys(t *testing.T) {
	c := dvid.ChunkPoint2d{-7, 12}
	k := storage.ChunkKey(c)
	if k.KeyType() != storage.KeyChunk {
		t.Errorf("bad key type %s", k.KeyType())
	}
	got, err := storage.ChunkFromKey(k)
	if err != nil || got != c {
		t.Errorf("expected %s from key, got %s, %v", c, got, err)
	}
	parsed, err := storage.KeyFromHex(k.Hex())
	if err != nil || !bytes.Equal(parsed, k) {
		t.Errorf("hex round trip failed: %v", err)
	}
	if _, err := storage.ChunkFromKey(storage.MetadataKey()); err == nil {
		t.Errorf("expected error decoding metadata key as chunk")
	}
	a, b := storage.ChunkKey(dvid.ChunkPoint2d{-1, 5}), storage.ChunkKey(dvid.ChunkPoint2d{0, -5})
	if bytes.Compare(a, b) >= 0 {
		t.Errorf("chunk keys don't sort numerically")
	}
}

func TestChunkStore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, newMemDB())
	defer store.Close()

	if err := store.PutChunk(ctx, dvid.ChunkPoint2d{0, 0}, []byte{1}); !errors.Is(err, chunk.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch for short chunk, got %v", err)
	}
	data := chunkData(4)
	if err := store.PutChunk(ctx, dvid.ChunkPoint2d{0, 0}, data); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetChunk(ctx, dvid.ChunkPoint2d{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("stored chunk doesn't match")
	}
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	cached := storage.NewCached(newMemDB(), 16*dvid.Mega, nil)
	store := openStore(t, cached)
	defer store.Close()

	if err := store.PutChunk(ctx, dvid.ChunkPoint2d{1, 1}, chunkData(2)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		got, err := store.GetChunk(ctx, dvid.ChunkPoint2d{1, 1})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, chunkData(2)) {
			t.Fatalf("cached chunk doesn't match")
		}
	}
	s := cached.Stats()
	if s.Hits < 3 {
		t.Errorf("expected at least 3 cache hits, got %+v", s)
	}
	if err := store.DeleteChunk(ctx, dvid.ChunkPoint2d{1, 1}); err != nil {
		t.Fatal(err)
	}
	if got, err := store.GetChunk(ctx, dvid.ChunkPoint2d{1, 1}); err != nil || got != nil {
		t.Errorf("deleted chunk still readable through cache: %d bytes, %v", len(got), err)
	}
	coords, err := store.Chunks(ctx)
	if err != nil || len(coords) != 0 {
		t.Errorf("expected no listed chunks, got %v, %v", coords, err)
	}
}

func TestLoaderWithManager(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, newMemDB())
	defer store.Close()
	if err := store.PutChunk(ctx, dvid.ChunkPoint2d{-1, 0}, chunkData(7)); err != nil {
		t.Fatal(err)
	}

	counting := &countingStore{Store: store}
	m := volume.NewManager(volume.WithLoader(storage.NewLoader(counting, 0, nil)))
	for i := 0; i < 3; i++ {
		v, err := m.GetValue(-16, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if v != 6 {
			t.Fatalf("expected block 6 from stored chunk, got %d", v)
		}
	}
	if n := atomic.LoadInt32(&counting.gets); n != 1 {
		t.Errorf("expected one store read, got %d", n)
	}
	if _, err := m.Get(100, 100, 0); !errors.Is(err, volume.ErrChunkMissing) {
		t.Errorf("expected ErrChunkMissing for chunk absent from store, got %v", err)
	}

	if err := m.Set(-16, 0, 0, volume.Block(1)); err != nil {
		t.Fatal(err)
	}
	if err := storage.Save(ctx, store, m, dvid.ChunkPoint2d{-1, 0}); err != nil {
		t.Fatal(err)
	}
	saved, err := store.GetChunk(ctx, dvid.ChunkPoint2d{-1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if saved[chunk.LinearIndex(0, 0, 0)] != 2 {
		t.Errorf("saved chunk doesn't hold the update")
	}
	if err := storage.Save(ctx, store, m, dvid.ChunkPoint2d{8, 8}); !errors.Is(err, volume.ErrChunkMissing) {
		t.Errorf("expected ErrChunkMissing saving absent chunk, got %v", err)
	}
}

func TestLoaderSharesFetch(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, newMemDB())
	defer store.Close()
	if err := store.PutChunk(ctx, dvid.ChunkPoint2d{3, 3}, chunkData(1)); err != nil {
		t.Fatal(err)
	}
	counting := &countingStore{Store: store, release: make(chan struct{})}
	loader := storage.NewLoader(counting, 0, nil)

	const callers = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([][]byte, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			data, err := loader.LoadChunk(dvid.ChunkPoint2d{3, 3})
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = data
		}(i)
	}
	started.Wait()
	close(counting.release)
	wg.Wait()
	if n := atomic.LoadInt32(&counting.gets); n < 1 || n > callers {
		t.Errorf("unexpected number of store reads %d", n)
	}
	for i, data := range results {
		if !bytes.Equal(data, chunkData(1)) {
			t.Errorf("caller %d got wrong data", i)
		}
	}
}

func TestPreload(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, newMemDB())
	defer store.Close()
	var coords []dvid.ChunkPoint2d
	for x := int32(-2); x < 2; x++ {
		c := dvid.ChunkPoint2d{x, x * 3}
		coords = append(coords, c)
		if err := store.PutChunk(ctx, c, chunkData(byte(x+3))); err != nil {
			t.Fatal(err)
		}
	}
	coords = append(coords, dvid.ChunkPoint2d{50, 50})

	m := volume.NewLocked(volume.NewManager())
	built, err := storage.NewLoader(store, 0, nil).Preload(ctx, m, coords, 3)
	if err != nil {
		t.Fatal(err)
	}
	if built != 4 {
		t.Errorf("expected 4 chunks built, got %d", built)
	}
	for _, c := range coords[:4] {
		if !m.Has(c) {
			t.Errorf("chunk %s not resident after preload", c)
		}
	}
	if m.Has(dvid.ChunkPoint2d{50, 50}) {
		t.Errorf("absent chunk became resident")
	}
	min := dvid.ChunkPoint2d{-2, -6}.MinPoint(volume.ChunkSize)
	if v, err := m.GetValue(min[0], min[1], 0); err != nil || v != 0 {
		t.Errorf("expected block 0 in chunk (-2,-6), got %d, %v", v, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := storage.NewLoader(store, 0, nil).Preload(cancelled, volume.NewManager(), coords, 2); err == nil {
		t.Errorf("expected error preloading with cancelled context")
	}
}

func TestPreloadKeepsResidentChunks(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, newMemDB())
	defer store.Close()
	resident := dvid.ChunkPoint2d{0, 0}
	stored := dvid.ChunkPoint2d{1, 0}
	for _, c := range []dvid.ChunkPoint2d{resident, stored} {
		if err := store.PutChunk(ctx, c, make([]byte, chunk.Full)); err != nil {
			t.Fatal(err)
		}
	}

	m := volume.NewLocked(volume.NewManager())
	if err := m.Build(resident, make([]byte, chunk.Full)); err != nil {
		t.Fatal(err)
	}
	if err := m.SetValue(5, 5, 5, 9); err != nil {
		t.Fatal(err)
	}

	counting := &countingStore{Store: store}
	built, err := storage.NewLoader(counting, 0, nil).Preload(ctx, m, []dvid.ChunkPoint2d{resident, stored}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if built != 1 {
		t.Errorf("expected only the absent chunk built, got %d", built)
	}
	if gets := atomic.LoadInt32(&counting.gets); gets != 1 {
		t.Errorf("expected resident chunk not fetched, got %d fetches", gets)
	}
	if v, err := m.GetValue(5, 5, 5); err != nil || v != 9 {
		t.Errorf("unsaved write replaced by preload: got %d, %v", v, err)
	}
	if !m.Has(stored) {
		t.Errorf("stored chunk %s not resident after preload", stored)
	}
}
