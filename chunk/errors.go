package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when raw or packed data is not exactly the size of a chunk.
	ErrLengthMismatch = errors.New("data length doesn't match chunk size")

	// ErrOutOfBounds is returned for coordinates or values outside the chunk's declared range.
	ErrOutOfBounds = errors.New("out of bounds")
)

// InconsistencyError is the panic value raised when no run covers a byte offset that
// must exist.  It means a prior update corrupted the run buffer and is not recoverable.
type InconsistencyError struct {
	Offset  int
	Covered int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("RLE lookup failed: offset %d outside covered span of %d bytes", e.Offset, e.Covered)
}
