package storage

import (
	"encoding/hex"
	"fmt"

	"github.com/janelia-flyem/voxchunk/dvid"
)

// KeyType partitions key space so metadata and chunk keys can't collide.
type KeyType byte

const (
	KeyMetadata KeyType = iota + 1
	KeyChunk
)

func (t KeyType) String() string {
	switch t {
	case KeyMetadata:
		return "Metadata Key Type"
	case KeyChunk:
		return "Chunk Key Type"
	default:
		return "Unknown Key Type"
	}
}

// Key is the byte-level key handed to a KeyValueDB.  The first byte is the KeyType.
type Key []byte

// KeyType returns the partition of key space holding k.
func (k Key) KeyType() KeyType {
	if len(k) == 0 {
		return 0
	}
	return KeyType(k[0])
}

// Hex returns a printable form of the key usable as an object name.
func (k Key) Hex() string {
	return hex.EncodeToString(k)
}

func (k Key) String() string {
	if k.KeyType() == KeyChunk {
		if c, err := ChunkFromKey(k); err == nil {
			return fmt.Sprintf("chunk %s", c)
		}
	}
	return fmt.Sprintf("%s %x", k.KeyType(), []byte(k))
}

// MetadataKey returns the key holding the store format version.
func MetadataKey() Key {
	return Key{byte(KeyMetadata)}
}

// ChunkKey returns the key for a chunk.  Keys of chunks sort by x then y.
func ChunkKey(c dvid.ChunkPoint2d) Key {
	return append(Key{byte(KeyChunk)}, c.Bytes()...)
}

// KeyFromHex parses the output of Key.Hex.
func KeyFromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Key(b), nil
}

// ChunkFromKey returns the chunk coordinate encoded in a chunk key.
func ChunkFromKey(k Key) (dvid.ChunkPoint2d, error) {
	if k.KeyType() != KeyChunk {
		return dvid.ChunkPoint2d{}, fmt.Errorf("key %x is not a chunk key", []byte(k))
	}
	return dvid.ChunkPoint2dFromBytes(k[1:])
}
