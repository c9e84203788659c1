package volume

import (
	"fmt"

	"github.com/janelia-flyem/voxchunk/chunk"
)

// MaxBlockID is the largest palette id a voxel can hold.
const MaxBlockID = chunk.MaxValue - 1

// Voxel is either Empty or a block with a palette id in [0, MaxBlockID].
// The zero value is Empty.
type Voxel struct {
	stored uint16 // 0 is empty, palette id + 1 otherwise
}

// Empty is the voxel with no block.
var Empty = Voxel{}

// Block returns a voxel holding palette id.  Ids above MaxBlockID are rejected by
// Manager.Set.
func Block(id uint8) Voxel {
	return Voxel{stored: uint16(id) + 1}
}

// FromStored converts a chunk value in [0,15] into a Voxel.
func FromStored(v uint8) Voxel {
	return Voxel{stored: uint16(v & chunk.MaxValue)}
}

// FromValue converts the integer convention used on the wire, -1 for empty and
// [0,14] for a palette id, into a Voxel.
func FromValue(v int) (Voxel, error) {
	switch {
	case v == -1:
		return Empty, nil
	case v >= 0 && v <= MaxBlockID:
		return Block(uint8(v)), nil
	}
	return Empty, fmt.Errorf("voxel value %d outside [-1,%d]: %w", v, MaxBlockID, chunk.ErrOutOfBounds)
}

// IsEmpty returns true if no block is present.
func (v Voxel) IsEmpty() bool {
	return v.stored == 0
}

// BlockID returns the palette id and true, or false for an empty voxel.
func (v Voxel) BlockID() (uint8, bool) {
	if v.IsEmpty() {
		return 0, false
	}
	return uint8(v.stored - 1), true
}

// Value returns -1 for an empty voxel or the palette id.
func (v Voxel) Value() int {
	if id, ok := v.BlockID(); ok {
		return int(id)
	}
	return -1
}

// Stored returns the chunk value for the voxel.  It reports false when the palette id
// can't be represented in a chunk.
func (v Voxel) Stored() (uint8, bool) {
	if v.stored > chunk.MaxValue {
		return 0, false
	}
	return uint8(v.stored), true
}

func (v Voxel) String() string {
	if id, ok := v.BlockID(); ok {
		return fmt.Sprintf("block %d", id)
	}
	return "empty"
}
