package pageengine

import (
	"bytes"
	"encoding/binary"
)

// Codec encodes and decodes one fixed-size POD value of type T to and from a
// byte slice. Size must always return the same constant for a given Codec
// value — node capacity (K_inner/K_leaf in spec.md §3) and every slot offset
// are recomputed from it on each node access.
type Codec[T any] interface {
	Size() int
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

// Comparator is a total order over K. Equality is !(a<b) && !(b<a), per
// spec.md §4.2.
type Comparator[K any] func(a, b K) int

// Uint32Codec encodes a uint32 as 4 little-endian bytes.
type Uint32Codec struct{}

func (Uint32Codec) Size() int                    { return 4 }
func (Uint32Codec) Encode(dst []byte, v uint32)  { binary.LittleEndian.PutUint32(dst, v) }
func (Uint32Codec) Decode(src []byte) uint32     { return binary.LittleEndian.Uint32(src) }

// CompareUint32 is the natural order on uint32, usable as a Comparator[uint32].
func CompareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Uint64Codec encodes a uint64 as 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Size() int                   { return 8 }
func (Uint64Codec) Encode(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func (Uint64Codec) Decode(src []byte) uint64    { return binary.LittleEndian.Uint64(src) }

// CompareUint64 is the natural order on uint64, usable as a Comparator[uint64].
func CompareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BytesCodec encodes a fixed-length []byte verbatim, e.g. for a 16-byte UUID
// key. Len must match every encoded value's length exactly; a mismatch
// panics rather than silently truncating, since spec.md's key/value model is
// plain-old-data of a single fixed size.
type BytesCodec struct {
	Len int
}

func (c BytesCodec) Size() int { return c.Len }

func (c BytesCodec) Encode(dst []byte, v []byte) {
	if len(v) != c.Len {
		panic("pageengine: BytesCodec: value length mismatch")
	}
	copy(dst, v)
}

func (c BytesCodec) Decode(src []byte) []byte {
	out := make([]byte, c.Len)
	copy(out, src[:c.Len])
	return out
}

// CompareBytes is lexicographic order, usable as a Comparator[[]byte].
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}
