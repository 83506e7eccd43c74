package store

import (
	"encoding/binary"
	"math"
)

// VecToBlob encodes a float32 vector as a little-endian byte blob, the
// on-disk representation spec.md §3 requires: len(blob) == 4*dimensions.
func VecToBlob(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// BlobToVec decodes a little-endian byte blob back into a float32 vector.
// Round-trips bytewise with VecToBlob (spec.md §8 "Round-trip / idempotence").
func BlobToVec(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
