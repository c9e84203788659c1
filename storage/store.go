/*
Package storage persists chunks outside of memory.  Engines in the subpackages
(badger, bucket) implement the byte-level KeyValueDB; ChunkStore layers chunk keys,
value serialization and format versioning on top.  Values hold a chunk's raw voxel
input rather than its run-length layout, so any stored chunk can be rebuilt with
volume.Manager.Build.
*/
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/blang/semver"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
)

// FormatVersion is the layout of keys and values written by this package.  Stores
// written with a different major version can't be opened.
var FormatVersion = semver.MustParse("1.0.0")

// ErrIncompatibleFormat is returned when opening a store written with an
// incompatible format version.
var ErrIncompatibleFormat = errors.New("incompatible store format")

// KeyValueDB is the byte-level interface every storage engine implements.
// Get returns a nil value and nil error for a missing key.
type KeyValueDB interface {
	Get(ctx context.Context, k Key) ([]byte, error)
	Put(ctx context.Context, k Key, v []byte) error
	Delete(ctx context.Context, k Key) error
	Close() error
	fmt.Stringer
}

// Store holds raw chunk data keyed by chunk coordinate.  GetChunk returns nil data
// and nil error when the chunk isn't stored.
type Store interface {
	GetChunk(ctx context.Context, c dvid.ChunkPoint2d) ([]byte, error)
	PutChunk(ctx context.Context, c dvid.ChunkPoint2d, data []byte) error
	DeleteChunk(ctx context.Context, c dvid.ChunkPoint2d) error
	Close() error
}

// ChunkStore is a Store on top of a KeyValueDB.
type ChunkStore struct {
	db       KeyValueDB
	compress dvid.Compression
	checksum dvid.Checksum
	log      dvid.Logger
}

// Open returns a ChunkStore for db, writing the format version into an empty store
// or verifying the version of an existing one.  New values are serialized with
// the given compression and a CRC32 checksum.
func Open(ctx context.Context, db KeyValueDB, compress dvid.Compression, logger dvid.Logger) (*ChunkStore, error) {
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	stored, err := db.Get(ctx, MetadataKey())
	if err != nil {
		return nil, fmt.Errorf("reading format version from %s: %w", db, err)
	}
	if stored == nil {
		if err := db.Put(ctx, MetadataKey(), []byte(FormatVersion.String())); err != nil {
			return nil, fmt.Errorf("writing format version to %s: %w", db, err)
		}
		logger.Infof("Initialized %s with format %s\n", db, FormatVersion)
	} else {
		ver, err := semver.Parse(string(stored))
		if err != nil {
			return nil, fmt.Errorf("bad format version %q in %s: %w", stored, db, err)
		}
		if ver.Major != FormatVersion.Major {
			return nil, fmt.Errorf("%s has format %s, need %d.x: %w", db, ver, FormatVersion.Major, ErrIncompatibleFormat)
		}
		logger.Debugf("Opened %s with format %s\n", db, ver)
	}
	return &ChunkStore{
		db:       db,
		compress: compress,
		checksum: dvid.CRC32,
		log:      logger,
	}, nil
}

func (s *ChunkStore) String() string {
	return fmt.Sprintf("chunk store on %s (%s)", s.db, s.compress)
}

// GetChunk returns the raw voxel data for c, or nil if c isn't stored.
func (s *ChunkStore) GetChunk(ctx context.Context, c dvid.ChunkPoint2d) ([]byte, error) {
	value, err := s.db.Get(ctx, ChunkKey(c))
	if err != nil {
		return nil, fmt.Errorf("getting chunk %s: %w", c, err)
	}
	if value == nil {
		return nil, nil
	}
	data, _, err := dvid.DeserializeData(value, true)
	if err != nil {
		return nil, fmt.Errorf("deserializing chunk %s: %w", c, err)
	}
	if len(data) != chunk.Full {
		return nil, fmt.Errorf("stored chunk %s has %d bytes, expected %d: %w", c, len(data), chunk.Full, chunk.ErrLengthMismatch)
	}
	return data, nil
}

// PutChunk stores Full bytes of raw voxel data for c.
func (s *ChunkStore) PutChunk(ctx context.Context, c dvid.ChunkPoint2d, data []byte) error {
	if len(data) != chunk.Full {
		return fmt.Errorf("can't store %d bytes for chunk %s, expected %d: %w", len(data), c, chunk.Full, chunk.ErrLengthMismatch)
	}
	value, err := dvid.SerializeData(data, s.compress, s.checksum)
	if err != nil {
		return fmt.Errorf("serializing chunk %s: %w", c, err)
	}
	if err := s.db.Put(ctx, ChunkKey(c), value); err != nil {
		return fmt.Errorf("putting chunk %s: %w", c, err)
	}
	s.log.Debugf("Stored chunk %s in %s (%s)\n", c, s.db, dvid.HumanBytes(len(value)))
	return nil
}

// DeleteChunk removes c.  Deleting an absent chunk is not an error.
func (s *ChunkStore) DeleteChunk(ctx context.Context, c dvid.ChunkPoint2d) error {
	if err := s.db.Delete(ctx, ChunkKey(c)); err != nil {
		return fmt.Errorf("deleting chunk %s: %w", c, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// Lister is implemented by engines that can enumerate keys.
type Lister interface {
	Keys(ctx context.Context, t KeyType) ([]Key, error)
}

// ErrNotListable is returned by Chunks when the engine can't enumerate keys.
var ErrNotListable = errors.New("store can't list keys")

// Chunks returns the coordinates of all stored chunks in key order.
func (s *ChunkStore) Chunks(ctx context.Context) ([]dvid.ChunkPoint2d, error) {
	lister, ok := s.db.(Lister)
	if !ok {
		return nil, fmt.Errorf("listing chunks in %s: %w", s.db, ErrNotListable)
	}
	keys, err := lister.Keys(ctx, KeyChunk)
	if err != nil {
		return nil, err
	}
	coords := make([]dvid.ChunkPoint2d, 0, len(keys))
	for _, k := range keys {
		c, err := ChunkFromKey(k)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	return coords, nil
}
