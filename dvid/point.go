package dvid

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type SimplePoint interface {
	// NumDims returns the dimensionality of this point.
	NumDims() uint8

	// Value returns the point's value for the specified dimension without checking dim bounds.
	Value(dim uint8) int32
}

// FloorDiv returns the largest integer q such that q*size <= v, i.e., division
// rounding toward negative infinity.  Size must be positive.
func FloorDiv(v, size int32) int32 {
	q := int64(v) / int64(size)
	if int64(v)%int64(size) < 0 {
		q--
	}
	return int32(q)
}

// EuclidMod returns v modulo size normalized into [0, size).  Size must be positive.
func EuclidMod(v, size int32) int32 {
	r := v % size
	if r < 0 {
		r += size
	}
	return r
}

// Point2d is a 2d point.
type Point2d [2]int32

func (p Point2d) NumDims() uint8 {
	return 2
}

// Value returns the value at the specified dimension for this point.
func (p Point2d) Value(dim uint8) int32 {
	return p[dim]
}

// Add returns the addition of two points.
func (p Point2d) Add(p2 Point2d) Point2d {
	return Point2d{p[0] + p2[0], p[1] + p2[1]}
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point2d) Sub(p2 Point2d) Point2d {
	return Point2d{p[0] - p2[0], p[1] - p2[1]}
}

func (p Point2d) String() string {
	return fmt.Sprintf("(%d, %d)", p[0], p[1])
}

// --- Chunk partitioning -----

// Chunk returns the chunk space coordinate of the chunk containing the point.
// Negative coordinates map to the chunk that actually contains them, so
// (-1, -1) with a 16x16 chunk size is in chunk (-1, -1), not (0, 0).
func (p Point2d) Chunk(size Point2d) ChunkPoint2d {
	return ChunkPoint2d{FloorDiv(p[0], size[0]), FloorDiv(p[1], size[1])}
}

// PointInChunk returns a point in containing block (chunk) space for the given point.
// Each component is in [0, size).
func (p Point2d) PointInChunk(size Point2d) Point2d {
	return Point2d{EuclidMod(p[0], size[0]), EuclidMod(p[1], size[1])}
}

// Point3d is an ordered list of three 32-bit signed integers that implements
// a voxel coordinate.  The third component is the vertical axis.
type Point3d [3]int32

func (p Point3d) NumDims() uint8 {
	return 3
}

// Value returns the value at the specified dimension for this point.
func (p Point3d) Value(dim uint8) int32 {
	return p[dim]
}

// XY returns the horizontal components of the point.
func (p Point3d) XY() Point2d {
	return Point2d{p[0], p[1]}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// ChunkPoint2d handles 2d signed chunk coordinates.
type ChunkPoint2d [2]int32

var (
	MaxChunkPoint2d = ChunkPoint2d{math.MaxInt32, math.MaxInt32}
	MinChunkPoint2d = ChunkPoint2d{math.MinInt32, math.MinInt32}
)

const ChunkPoint2dSize = 8

func (c ChunkPoint2d) String() string {
	return fmt.Sprintf("(%d,%d)", c[0], c[1])
}

func (c ChunkPoint2d) NumDims() uint8 {
	return 2
}

// Value returns the value at the specified dimension.
func (c ChunkPoint2d) Value(dim uint8) int32 {
	return c[dim]
}

// MinPoint returns the smallest voxel coordinate of the given 2d chunk.
func (c ChunkPoint2d) MinPoint(size Point2d) Point2d {
	return Point2d{
		c[0] * size[0],
		c[1] * size[1],
	}
}

// MaxPoint returns the maximum voxel coordinate of the given 2d chunk.
func (c ChunkPoint2d) MaxPoint(size Point2d) Point2d {
	return Point2d{
		(c[0]+1)*size[0] - 1,
		(c[1]+1)*size[1] - 1,
	}
}

// Bytes returns a big-endian encoding of the chunk coordinate with the sign bit
// flipped, so that lexicographic byte order matches numeric order.
func (c ChunkPoint2d) Bytes() []byte {
	buf := make([]byte, ChunkPoint2dSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(c[0])^0x80000000)
	binary.BigEndian.PutUint32(buf[4:8], uint32(c[1])^0x80000000)
	return buf
}

// ChunkPoint2dFromBytes decodes the encoding produced by ChunkPoint2d.Bytes.
func ChunkPoint2dFromBytes(b []byte) (ChunkPoint2d, error) {
	if len(b) < ChunkPoint2dSize {
		return ChunkPoint2d{}, fmt.Errorf("chunk coordinate encoding needs %d bytes, got %d", ChunkPoint2dSize, len(b))
	}
	var c ChunkPoint2d
	c[0] = int32(binary.BigEndian.Uint32(b[0:4]) ^ 0x80000000)
	c[1] = int32(binary.BigEndian.Uint32(b[4:8]) ^ 0x80000000)
	return c, nil
}

// ParseChunkPoint2d parses strings like "3,-2" or "3_-2" into a chunk coordinate.
func ParseChunkPoint2d(s string) (ChunkPoint2d, error) {
	sep := ","
	if strings.Contains(s, "_") {
		sep = "_"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return ChunkPoint2d{}, fmt.Errorf("can't parse %q as 2d chunk coordinate", s)
	}
	var c ChunkPoint2d
	for i, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return ChunkPoint2d{}, fmt.Errorf("can't parse %q as 2d chunk coordinate: %v", s, err)
		}
		c[i] = int32(v)
	}
	return c, nil
}
