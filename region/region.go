// Package region models the contiguous byte range an allocator carves its
// allocations from.
//
// A Region either borrows a caller-supplied buffer (New) or owns memory
// reserved from the operating system (Reserve). Owned memory is released
// exactly once, by Close. All in-region metadata is read and written through
// Word/PutWord at explicit offsets, so every access is bounds-checked.
//
// Regions are not safe for concurrent use.
package region

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/vmem"
)

var (
	// ErrEmptyRegion indicates a zero-length buffer, or one with no bytes left
	// after aligning its start to 8 bytes.
	ErrEmptyRegion = errors.New("region: empty region")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")
)

// Region is a fixed-size byte range with an 8-byte aligned base.
type Region struct {
	data    []byte
	owned   bool
	release func() error
}

// New wraps a caller-owned buffer. If buf does not start on an 8-byte
// boundary the first few bytes are skipped. The region never releases buf.
func New(b []byte) (*Region, error) {
	if len(b) == 0 {
		return nil, ErrEmptyRegion
	}
	pad := format.PadTo8(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
	if pad >= len(b) {
		return nil, ErrEmptyRegion
	}
	b = b[pad:]
	return &Region{data: b[:len(b):len(b)]}, nil
}

// Reserve allocates a fresh size-byte region from the operating system.
// The region owns that memory and gives it back on Close.
func Reserve(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrEmptyRegion, size)
	}
	data, release, err := vmem.Reserve(size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, owned: true, release: release}, nil
}

// Len returns the capacity in bytes, or 0 after Close.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.data)
}

// Owned reports whether Close gives memory back to the operating system.
func (r *Region) Owned() bool {
	return r != nil && r.owned
}

// Closed reports whether Close has run.
func (r *Region) Closed() bool {
	return r == nil || r.data == nil
}

// Base returns the address of the first byte, for diagnostics only.
// It is 0 once the region is closed.
func (r *Region) Base() uintptr {
	if r == nil || len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
}

// Bytes exposes the whole backing slice. Allocators cache it; callers should
// prefer Slice.
func (r *Region) Bytes() []byte {
	if r == nil {
		return nil
	}
	return r.data
}

// Slice returns data[off:off+n] with capacity clipped to n.
func (r *Region) Slice(off, n int) ([]byte, error) {
	if r.Closed() {
		return nil, ErrClosed
	}
	if _, err := buf.CheckSpan(len(r.data), off, n); err != nil {
		return nil, fmt.Errorf("region: slice: %w", err)
	}
	return r.data[off : off+n : off+n], nil
}

// Word reads the 8-byte word at off.
func (r *Region) Word(off int) (uint64, error) {
	if r.Closed() {
		return 0, ErrClosed
	}
	if _, err := buf.CheckSpan(len(r.data), off, format.WordSize); err != nil {
		return 0, fmt.Errorf("region: word: %w", err)
	}
	return format.Word(r.data, off), nil
}

// PutWord writes the 8-byte word at off.
func (r *Region) PutWord(off int, v uint64) error {
	if r.Closed() {
		return ErrClosed
	}
	if _, err := buf.CheckSpan(len(r.data), off, format.WordSize); err != nil {
		return fmt.Errorf("region: word: %w", err)
	}
	format.PutWord(r.data, off, v)
	return nil
}

// Contains reports whether [off, off+n) lies inside the region.
func (r *Region) Contains(off, n int) bool {
	return !r.Closed() && buf.Has(r.data, off, n)
}

// Close detaches the region and, for owned regions, releases the memory.
// Calling Close again is a no-op.
func (r *Region) Close() error {
	if r == nil || r.data == nil {
		return nil
	}
	release := r.release
	r.data, r.release = nil, nil
	if release != nil {
		return release()
	}
	return nil
}
