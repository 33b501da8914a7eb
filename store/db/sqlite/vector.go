package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are stored as little-endian float32 BLOBs. The dimension is not
// fixed here; it is derived from the BLOB length on read so that index and
// query vectors only need to agree with each other.

func float32SliceToBlob(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func blobToFloat32Slice(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// cosineSimilarity returns the cosine similarity of two vectors, or 0 when
// the dimensions disagree or either vector is all zeros.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
