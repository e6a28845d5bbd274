//go:build !unix && !windows

// Package vmem reserves memory for regions that an allocator owns outright.
package vmem

import "fmt"

// Reserve falls back to the Go heap where no mapping primitive is available.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("vmem: invalid size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
