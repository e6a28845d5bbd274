package alloc

import (
	"fmt"

	"github.com/joshuapare/memkit/region"
)

// Bump is a linear (arena) allocator. Alloc advances a cursor; the only way
// to reclaim memory is Reset, which reclaims everything at once in O(1).
//
// Key characteristics:
//   - O(1) allocation: round up to 8, compare, advance
//   - no per-allocation metadata in the region
//   - Reset invalidates every ref issued before it
type Bump struct {
	linear
	owned bool
}

// NewBump binds a bump allocator to a caller-owned region. The region is
// never released by the allocator.
func NewBump(r *region.Region, opts *Options) (*Bump, error) {
	b := &Bump{}
	if err := b.init(r, opts); err != nil {
		return nil, err
	}
	return b, nil
}

// NewOwnedBump reserves a fresh region of size bytes and binds a bump
// allocator to it. Destroy releases the region.
func NewOwnedBump(size int, opts *Options) (*Bump, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: region size %d", ErrInvalidSize, size)
	}
	r, err := region.Reserve(size)
	if err != nil {
		return nil, fmt.Errorf("alloc: reserve bump region: %w", err)
	}
	b := &Bump{owned: true}
	if err := b.init(r, opts); err != nil {
		_ = r.Close()
		return nil, err
	}
	return b, nil
}

// Alloc reserves n bytes, rounded up to a multiple of 8.
// Returns ErrZeroSize for n <= 0 and ErrNoSpace when the rounded size does
// not fit; the allocator is unchanged on failure.
func (b *Bump) Alloc(n int) (Ref, []byte, error) {
	if b == nil {
		return Ref{}, nil, ErrNilAllocator
	}
	return b.alloc(KindBump, n)
}

// Bytes returns the payload for ref, or ErrStaleRef if a Reset happened since.
func (b *Bump) Bytes(ref Ref) ([]byte, error) {
	if b == nil {
		return nil, ErrNilAllocator
	}
	return b.bytes(ref)
}

// Reset reclaims every allocation. Prior payload slices must not be used.
func (b *Bump) Reset() {
	if b == nil {
		return
	}
	b.reset()
}

// Destroy detaches the allocator from its region and zeroes its state. An
// owned region is released exactly once; calling Destroy again is a no-op.
func (b *Bump) Destroy() error {
	if b == nil {
		return nil
	}
	if b.r != nil {
		b.log.Debug("bump: destroy", "owned", b.owned, "used", b.used, "cap", len(b.data))
	}
	err := b.detach(b.owned)
	b.owned = false
	return err
}

// Used returns the bytes consumed so far, alignment padding included.
func (b *Bump) Used() int {
	if b == nil {
		return 0
	}
	return b.used
}

// Remaining returns Cap() - Used().
func (b *Bump) Remaining() int {
	if b == nil {
		return 0
	}
	return len(b.data) - b.used
}

// Cap returns the region capacity, 0 after Destroy.
func (b *Bump) Cap() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Owned reports whether Destroy releases the region.
func (b *Bump) Owned() bool {
	return b != nil && b.owned
}

// Stats returns a snapshot for status reporting.
func (b *Bump) Stats() Stats {
	if b == nil {
		return Stats{Kind: KindBump}
	}
	return b.stats(KindBump, b.owned)
}
