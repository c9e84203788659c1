package chunk

import (
	"fmt"

	"github.com/DmitriyVTitov/size"
)

const (
	// Width is the extent of a chunk along x and y.
	Width = 16

	// Height is the extent of a chunk along z.
	Height = 384

	// Shift offsets z so the lowest allowed z, -Shift, maps to internal index 0.
	Shift = 64

	// Full is the number of voxels in a chunk.
	Full = Width * Width * Height

	// PackedSize is the number of bytes holding a chunk's nibble-packed voxels.
	PackedSize = Full / 2

	// MinZ and MaxZ bound the vertical coordinate: MinZ <= z < MaxZ.
	MinZ = -Shift
	MaxZ = Height - Shift

	// MaxValue is the largest voxel value a chunk can hold.
	MaxValue = 0x0F
)

// LinearIndex returns the voxel index for a local coordinate with y varying fastest,
// then z, then x.  The coordinate is assumed to be in bounds.
func LinearIndex(x, y, z int32) int {
	return int(x)*Width*Height + int(z+Shift)*Width + int(y)
}

// InBounds returns true if the local coordinate lies within a chunk.
func InBounds(x, y, z int32) bool {
	return x >= 0 && x < Width && y >= 0 && y < Width && z >= MinZ && z < MaxZ
}

// Chunk holds one chunk of voxels as run-length encoded, nibble-packed bytes.
// It has no internal synchronization.
type Chunk struct {
	runs Runs
}

// New returns a chunk built from Full bytes of raw voxel data.
func New(data []byte) (*Chunk, error) {
	c := new(Chunk)
	if err := c.Populate(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Populate replaces the chunk's entire contents with the given raw voxel data.
// Nothing from the prior contents survives.  On error the chunk is unchanged.
func (c *Chunk) Populate(data []byte) error {
	packed, err := Pack(data)
	if err != nil {
		return err
	}
	c.runs = EncodeRuns(packed)
	return nil
}

func locate(x, y, z int32) (offset int, shift uint, err error) {
	if !InBounds(x, y, z) {
		return 0, 0, fmt.Errorf("voxel (%d,%d,%d) outside chunk bounds: %w", x, y, z, ErrOutOfBounds)
	}
	index := LinearIndex(x, y, z)
	return index / 2, uint(index%2) * 4, nil
}

// Get returns the voxel value in [0,15] at the local coordinate.
func (c *Chunk) Get(x, y, z int32) (uint8, error) {
	offset, shift, err := locate(x, y, z)
	if err != nil {
		return 0, err
	}
	b, _, _, _ := c.runs.DecodeAt(offset)
	return (b >> shift) & 0x0F, nil
}

// Set writes a voxel value in [0,15] at the local coordinate, leaving the other
// voxel sharing its packed byte untouched.
func (c *Chunk) Set(x, y, z int32, value uint8) error {
	if value > MaxValue {
		return fmt.Errorf("voxel value %d exceeds %d: %w", value, MaxValue, ErrOutOfBounds)
	}
	offset, shift, err := locate(x, y, z)
	if err != nil {
		return err
	}
	b, _, _, _ := c.runs.DecodeAt(offset)
	mask := byte(0x0F) << shift
	b = b&^mask | value<<shift
	c.runs.UpdateAt(offset, b)
	return nil
}

// Runs returns a copy of the chunk's run buffer.
func (c *Chunk) Runs() Runs {
	out := make(Runs, len(c.runs))
	copy(out, c.runs)
	return out
}

// NumRuns returns the number of runs currently describing the chunk.
func (c *Chunk) NumRuns() int {
	return len(c.runs)
}

// Export returns the chunk as Full bytes of raw voxel data, suitable for New or Populate.
func (c *Chunk) Export() []byte {
	data, err := Unpack(c.runs.Decode())
	if err != nil {
		panic(&InconsistencyError{Offset: PackedSize, Covered: c.runs.Len()})
	}
	return data
}

// Compact merges adjacent equal-valued runs left behind by point updates and
// returns the number of runs removed.
func (c *Chunk) Compact() int {
	return c.runs.Compact()
}

// Stats describes how compactly a chunk is stored.
type Stats struct {
	Runs         int     `json:"runs"`
	EncodedBytes int     `json:"encoded_bytes"`
	MemoryBytes  int     `json:"memory_bytes"`
	Ratio        float64 `json:"ratio"`
}

// runBytes is the payload of one run: a value byte plus a uint16 length.
const runBytes = 3

// Stats returns the run count, encoded payload size, in-memory footprint, and the
// ratio of a one-byte-per-voxel array to the encoded payload.
func (c *Chunk) Stats() Stats {
	encoded := len(c.runs) * runBytes
	s := Stats{
		Runs:         len(c.runs),
		EncodedBytes: encoded,
		MemoryBytes:  size.Of(c),
	}
	if encoded > 0 {
		s.Ratio = float64(Full) / float64(encoded)
	}
	return s
}
