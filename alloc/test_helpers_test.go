package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/region"
)

// newTestRegion returns a caller-owned region of exactly size bytes.
func newTestRegion(t testing.TB, size int) *region.Region {
	t.Helper()
	r, err := region.New(make([]byte, size))
	require.NoError(t, err)
	require.Equal(t, size, r.Len(), "heap buffers are 8-byte aligned, no padding expected")
	return r
}

// fill writes a recognisable pattern into p.
func fill(p []byte, seed byte) {
	for i := range p {
		p[i] = seed + byte(i)
	}
}

// intact reports whether p still holds the pattern written by fill.
func intact(p []byte, seed byte) bool {
	for i := range p {
		if p[i] != seed+byte(i) {
			return false
		}
	}
	return true
}
