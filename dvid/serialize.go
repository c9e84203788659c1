/*
	This file supports serialization/deserialization and compression of data.
*/

package dvid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the format of compression for storing data.
// NOTE: Should be no more than 8 (3 bits) of compression types.
type Compression uint8

const (
	Uncompressed Compression = 0
	Snappy       Compression = 1
	LZ4          Compression = 2
	Zstd         Compression = 3
)

func (compress Compression) String() string {
	switch compress {
	case Uncompressed:
		return "No compression"
	case Snappy:
		return "Go Snappy compression"
	case LZ4:
		return "Go LZ4 compression"
	case Zstd:
		return "Zstandard compression"
	default:
		return "Unknown compression"
	}
}

// ParseCompression converts a configuration name ("none", "snappy", "lz4", "zstd")
// into a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none", "uncompressed":
		return Uncompressed, nil
	case "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return Uncompressed, fmt.Errorf("unknown compression %q", s)
}

// Checksum is the type of checksum employed for error checking stored data.
// NOTE: Should be no more than 4 (2 bits) of checksum types.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32      Checksum = 1
)

func (checksum Checksum) String() string {
	switch checksum {
	case NoChecksum:
		return "No checksum"
	case CRC32:
		return "CRC32 checksum"
	default:
		return "Unknown checksum"
	}
}

// SerializationFormat is a single byte combining both compression and checksum methods.
type SerializationFormat uint8

func EncodeSerializationFormat(compress Compression, checksum Checksum) SerializationFormat {
	a := (uint8(compress) & 0x07) << 5
	b := (uint8(checksum) & 0x03) << 3
	return SerializationFormat(a | b)
}

func DecodeSerializationFormat(s SerializationFormat) (compress Compression, checksum Checksum) {
	compress = Compression(uint8(s) >> 5)
	checksum = Checksum((uint8(s) >> 3) & 0x03)
	return
}

// The zstd encoder and decoder are safe for concurrent use through EncodeAll/DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// SerializeData serializes a slice of bytes using optional compression, checksum.
func SerializeData(data []byte, compress Compression, checksum Checksum) (s []byte, err error) {
	var buffer bytes.Buffer

	// Store the requested compression and checksum
	format := EncodeSerializationFormat(compress, checksum)
	if err = buffer.WriteByte(byte(format)); err != nil {
		return
	}

	// Handle compression if requested
	var byteData []byte
	switch compress {
	case Uncompressed:
		byteData = data
	case Snappy:
		byteData = snappy.Encode(nil, data)
	case LZ4:
		var zbuf bytes.Buffer
		zw := lz4.NewWriter(&zbuf)
		if _, err = zw.Write(data); err == nil {
			err = zw.Close()
		}
		byteData = zbuf.Bytes()
	case Zstd:
		byteData = zstdEncoder.EncodeAll(data, nil)
	default:
		err = fmt.Errorf("Illegal compression (%s) during serialization", compress)
	}
	if err != nil {
		return
	}

	// Handle checksum if requested
	switch checksum {
	case NoChecksum:
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(byteData)
		err = binary.Write(&buffer, binary.LittleEndian, crcChecksum)
	default:
		err = fmt.Errorf("Illegal checksum (%s) in serialize.SerializeData()", checksum)
	}
	if err == nil {
		// Note the actual data is written last, after any checksum so we don't have to
		// worry about length when deserializing.
		_, err = buffer.Write(byteData)
		if err == nil {
			s = buffer.Bytes()
		}
	}
	return
}

// DeserializeData deserializes a slice of bytes using stored compression, checksum.
// If uncompress parameter is false, the data is not uncompressed.
func DeserializeData(s []byte, uncompress bool) (data []byte, compress Compression, err error) {
	if len(s) == 0 {
		err = fmt.Errorf("can't deserialize empty data")
		return
	}
	buffer := bytes.NewBuffer(s)

	// Get the stored compression and checksum
	formatByte, _ := buffer.ReadByte()
	var checksum Checksum
	compress, checksum = DecodeSerializationFormat(SerializationFormat(formatByte))

	// Get any checksum.
	var storedCrc32 uint32
	switch checksum {
	case NoChecksum:
	case CRC32:
		err = binary.Read(buffer, binary.LittleEndian, &storedCrc32)
	default:
		err = fmt.Errorf("Illegal checksum in deserializing data")
	}
	if err != nil {
		return
	}

	// Get the possibly compressed data.
	cdata := buffer.Bytes()

	// Perform any requested checksum
	if checksum == CRC32 {
		crcChecksum := crc32.ChecksumIEEE(cdata)
		if crcChecksum != storedCrc32 {
			err = fmt.Errorf("Bad checksum.  Stored %x got %x", storedCrc32, crcChecksum)
			return
		}
	}

	if !uncompress {
		data = cdata
		return
	}
	switch compress {
	case Uncompressed:
		data = cdata
	case Snappy:
		data, err = snappy.Decode(nil, cdata)
	case LZ4:
		data, err = io.ReadAll(lz4.NewReader(bytes.NewReader(cdata)))
	case Zstd:
		data, err = zstdDecoder.DecodeAll(cdata, nil)
	default:
		err = fmt.Errorf("Illegal compression format (%d) in deserialization", compress)
	}
	return
}
