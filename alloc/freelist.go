package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/region"
)

const (
	// blockHeaderSize is the hidden size word in front of every live payload.
	blockHeaderSize = format.WordSize

	// minBlockSize is the smallest block that can sit in the free list:
	// a size word plus a next link.
	minBlockSize = 2 * format.WordSize
)

// FreeList is a variable-size allocator with individual release.
//
// Layout inside the region:
//
//	free block:  [size u64][next u64][... unused ...]
//	live block:  [size u64][payload ...............]
//
// The free list is kept sorted by ascending offset, so on Free both
// neighbours of the released block are found by the insertion scan and
// coalescing is a pair of local comparisons.
//
// Allocation is first-fit. A block is split when the remainder can still hold
// a minimum block; otherwise the whole block is handed out and the slack is
// internal fragmentation.
type FreeList struct {
	r    *region.Region
	data []byte

	head  int // offset of the lowest free block, -1 when none
	used  int // sum of live block sizes, headers included
	epoch uint32

	// live maps each live block to its allocation sequence, only kept with
	// Options.Debug.
	live map[int]uint64
	seq  uint64

	counters Counters
	log      *slog.Logger
}

// Counters holds running statistics for instrumentation and tests.
type Counters struct {
	Allocs           int // successful Alloc calls
	Frees            int // successful non-nil Free calls
	Splits           int // allocations that split a block
	WholeBlocks      int // allocations that took a block without splitting
	CoalesceForward  int // merges with the following free block
	CoalesceBackward int // merges with the preceding free block
}

// Block describes one free block.
type Block struct {
	Off  int
	Size int
}

// End returns the offset one past the block.
func (b Block) End() int { return b.Off + b.Size }

// NewFreeList binds a free-list allocator to r with one free block spanning
// the whole region.
func NewFreeList(r *region.Region, opts *Options) (*FreeList, error) {
	if r == nil {
		return nil, ErrNilRegion
	}
	if r.Closed() {
		return nil, ErrUninitialized
	}
	if r.Len() < minBlockSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, have %d",
			ErrRegionTooSmall, minBlockSize, r.Len())
	}
	fl := &FreeList{
		r:     r,
		data:  r.Bytes(),
		epoch: 1,
		log:   opts.logger(),
	}
	if opts.debug() {
		fl.live = make(map[int]uint64)
	}
	fl.format()
	return fl, nil
}

// format installs a single free block covering the region.
func (fl *FreeList) format() {
	fl.head = 0
	fl.setSize(0, len(fl.data))
	fl.setNext(0, -1)
	fl.used = 0
	clear(fl.live)
}

func (fl *FreeList) size(off int) int      { return int(format.Word(fl.data, off)) }
func (fl *FreeList) setSize(off, size int) { format.PutWord(fl.data, off, uint64(size)) }
func (fl *FreeList) next(off int) int      { return format.Link(fl.data, off+format.WordSize) }
func (fl *FreeList) setNext(off, next int) { format.PutLink(fl.data, off+format.WordSize, next) }

// link makes the list entry after prev point at off; prev == -1 means head.
func (fl *FreeList) link(prev, off int) {
	if prev < 0 {
		fl.head = off
		return
	}
	fl.setNext(prev, off)
}

// blockSizeFor returns the block size needed to serve an n-byte payload.
func blockSizeFor(n int) (int, bool) {
	withHeader, ok := buf.AddOverflowSafe(n, blockHeaderSize)
	if !ok {
		return 0, false
	}
	required, ok := format.Align8Checked(withHeader)
	if !ok {
		return 0, false
	}
	return max(required, minBlockSize), true
}

// Alloc reserves an n-byte payload using first-fit.
// Returns ErrZeroSize for n <= 0 and ErrNoFit when no free block is large
// enough; the allocator is unchanged on failure.
func (fl *FreeList) Alloc(n int) (Ref, []byte, error) {
	if fl == nil {
		return Ref{}, nil, ErrNilAllocator
	}
	if fl.data == nil {
		return Ref{}, nil, ErrUninitialized
	}
	if n <= 0 {
		return Ref{}, nil, ErrZeroSize
	}
	required, ok := blockSizeFor(n)
	if !ok {
		return Ref{}, nil, ErrNoFit
	}

	prev := -1
	for cur := fl.head; cur >= 0; prev, cur = cur, fl.next(cur) {
		size := fl.size(cur)
		if size < required {
			continue
		}

		if size-required >= minBlockSize {
			// Split: the remainder takes this block's place in the list,
			// which keeps the list sorted.
			rest := cur + required
			fl.setSize(rest, size-required)
			fl.setNext(rest, fl.next(cur))
			fl.link(prev, rest)
			fl.setSize(cur, required)
			fl.counters.Splits++
		} else {
			fl.link(prev, fl.next(cur))
			required = size
			fl.counters.WholeBlocks++
		}

		fl.used += required
		fl.counters.Allocs++
		p := cur + blockHeaderSize
		ref := Ref{Off: p, Len: n, gen: fl.epoch}
		if fl.live != nil {
			fl.seq++
			fl.live[cur] = fl.seq
			ref.seq = fl.seq
		}
		return ref, fl.data[p : p+n : p+n], nil
	}

	fl.log.Debug("freelist: no fit", "request", n, "required", required,
		"used", fl.used, "cap", len(fl.data))
	return Ref{}, nil, ErrNoFit
}

// Free releases ref's block and merges it with any adjacent free blocks.
// The zero Ref is a no-op.
//
// Every check runs before the first write, so a rejected Free leaves the
// allocator untouched.
func (fl *FreeList) Free(ref Ref) error {
	if fl == nil {
		return ErrNilAllocator
	}
	if ref.IsNil() {
		return nil
	}
	blk, size, err := fl.block(ref)
	if err != nil {
		fl.log.Debug("freelist: rejected free", "off", ref.Off, "err", err)
		return err
	}

	// Find the insertion point: prev < blk < cur.
	prev, cur := -1, fl.head
	for cur >= 0 && cur < blk {
		prev, cur = cur, fl.next(cur)
	}
	switch {
	case cur == blk:
		return ErrDoubleFree
	case prev >= 0 && prev+fl.size(prev) > blk:
		// blk lies inside a free block, typically one it was already
		// coalesced into.
		return ErrDoubleFree
	case cur >= 0 && blk+size > cur:
		return ErrBadRef
	}

	fl.used -= size
	fl.counters.Frees++
	if fl.live != nil {
		delete(fl.live, blk)
	}

	fl.setNext(blk, cur)
	fl.link(prev, blk)

	if cur >= 0 && blk+size == cur {
		size += fl.size(cur)
		fl.setSize(blk, size)
		fl.setNext(blk, fl.next(cur))
		fl.counters.CoalesceForward++
	}
	if prev >= 0 && prev+fl.size(prev) == blk {
		fl.setSize(prev, fl.size(prev)+size)
		fl.setNext(prev, fl.next(blk))
		fl.counters.CoalesceBackward++
	}
	return nil
}

// block recovers and validates the block behind ref.
func (fl *FreeList) block(ref Ref) (blk, size int, err error) {
	if fl.data == nil {
		return 0, 0, ErrUninitialized
	}
	if ref.gen != fl.epoch {
		return 0, 0, ErrStaleRef
	}
	blk = ref.Off - blockHeaderSize
	if blk < 0 || !format.IsAligned8(blk) || !buf.Has(fl.data, blk, minBlockSize) {
		return 0, 0, ErrBadRef
	}
	if fl.live != nil {
		seq, ok := fl.live[blk]
		if !ok {
			return 0, 0, ErrDoubleFree
		}
		if seq != ref.seq {
			return 0, 0, ErrStaleRef
		}
	}
	size = fl.size(blk)
	if size < minBlockSize || !buf.Has(fl.data, blk, size) || ref.End() > blk+size {
		return 0, 0, ErrBadRef
	}
	return blk, size, nil
}

// Bytes returns the payload for a live ref.
func (fl *FreeList) Bytes(ref Ref) ([]byte, error) {
	if fl == nil {
		return nil, ErrNilAllocator
	}
	if ref.IsNil() {
		return nil, nil
	}
	if _, _, err := fl.block(ref); err != nil {
		return nil, err
	}
	return fl.data[ref.Off:ref.End():ref.End()], nil
}

// Reset frees everything and invalidates all refs.
func (fl *FreeList) Reset() {
	if fl == nil || fl.data == nil {
		return
	}
	fl.format()
	fl.epoch++
}

// FreeBlocks returns the free list in address order.
func (fl *FreeList) FreeBlocks() []Block {
	if fl == nil || fl.data == nil {
		return nil
	}
	var blocks []Block
	for cur := fl.head; cur >= 0; cur = fl.next(cur) {
		blocks = append(blocks, Block{Off: cur, Size: fl.size(cur)})
	}
	return blocks
}

// Used returns the bytes held by live blocks, headers and padding included.
func (fl *FreeList) Used() int {
	if fl == nil {
		return 0
	}
	return fl.used
}

// Available returns Cap() - Used(). Fragmentation may keep a request of this
// size from fitting.
func (fl *FreeList) Available() int {
	if fl == nil {
		return 0
	}
	return len(fl.data) - fl.used
}

// Cap returns the region capacity.
func (fl *FreeList) Cap() int {
	if fl == nil {
		return 0
	}
	return len(fl.data)
}

// Counters returns a copy of the running statistics.
func (fl *FreeList) Counters() Counters {
	if fl == nil {
		return Counters{}
	}
	return fl.counters
}

// Stats returns a snapshot for status reporting.
func (fl *FreeList) Stats() Stats {
	if fl == nil {
		return Stats{Kind: KindFreeList}
	}
	return Stats{
		Kind:     KindFreeList,
		Base:     fl.r.Base(),
		Capacity: len(fl.data),
		Used:     fl.used,
	}
}
