package store

import (
	"encoding/binary"
	"math"
)

// EncodeEmbedding packs a float32 vector into little-endian bytes for
// storage. A nil/empty vector encodes to nil, meaning "no embedding".
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding unpacks little-endian bytes into a float32 vector. A
// nil/empty blob decodes to nil. Length is implicit from len(blob)/4.
func DecodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
