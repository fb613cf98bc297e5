// Package cache provides embedding cache backends keyed by text fingerprint.
//
// Backends:
//   - Memory: process-local map with lazy expiry
//   - Redis: shared cache using native key TTLs
//
// A Postgres-backed cache lives in the storage package. All backends are
// best-effort: callers treat any error as a cache miss.
package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

const bytesPerFloat32 = 4

// EncodeVector serializes a vector as little-endian float32 values.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*bytesPerFloat32)

	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*bytesPerFloat32:], math.Float32bits(v))
	}

	return buf
}

// DecodeVector parses a vector produced by EncodeVector.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%bytesPerFloat32 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", coreerrors.ErrCacheCorrupt, len(buf))
	}

	vec := make([]float32, len(buf)/bytesPerFloat32)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*bytesPerFloat32:]))
	}

	return vec, nil
}
