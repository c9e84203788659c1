package chunk

import "fmt"

// Pack converts Full bytes of raw voxel values into Full/2 nibble-packed bytes.
// Even voxel indices go to the low nibble, odd indices to the high nibble.  Only
// the low 4 bits of each input byte are used.
func Pack(data []byte) ([]byte, error) {
	if len(data) != Full {
		return nil, fmt.Errorf("can't pack %d bytes, need %d: %w", len(data), Full, ErrLengthMismatch)
	}
	packed := make([]byte, PackedSize)
	for i := 0; i < PackedSize; i++ {
		packed[i] = data[2*i]&0x0F | (data[2*i+1]&0x0F)<<4
	}
	return packed, nil
}

// Unpack expands PackedSize nibble-packed bytes back into Full raw voxel values.
func Unpack(packed []byte) ([]byte, error) {
	if len(packed) != PackedSize {
		return nil, fmt.Errorf("can't unpack %d bytes, need %d: %w", len(packed), PackedSize, ErrLengthMismatch)
	}
	data := make([]byte, Full)
	for i, b := range packed {
		data[2*i] = b & 0x0F
		data[2*i+1] = b >> 4
	}
	return data, nil
}
