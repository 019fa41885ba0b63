package wire

import (
	"encoding/binary"
	"math"
)

// AppendFixed32 appends the little-endian 4-byte encoding of v.
func AppendFixed32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// AppendFixed64 appends the little-endian 8-byte encoding of v.
func AppendFixed64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// ConsumeFixed32 reads a little-endian 4-byte value from the front of buf.
func ConsumeFixed32(buf []byte) (v uint32, n int, err error) {
	if len(buf) < 4 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

// ConsumeFixed64 reads a little-endian 8-byte value from the front of buf.
func ConsumeFixed64(buf []byte) (v uint64, n int, err error) {
	if len(buf) < 8 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint64(buf), 8, nil
}

// EncodeFloat32 reinterprets a float32's bits as a fixed32.
func EncodeFloat32(v float32) uint32 { return math.Float32bits(v) }

// EncodeFloat64 reinterprets a float64's bits as a fixed64.
func EncodeFloat64(v float64) uint64 { return math.Float64bits(v) }

// DecodeFloat32 reinterprets a fixed32's bits as a float32.
func DecodeFloat32(v uint32) float32 { return math.Float32frombits(v) }

// DecodeFloat64 reinterprets a fixed64's bits as a float64.
func DecodeFloat64(v uint64) float64 { return math.Float64frombits(v) }
