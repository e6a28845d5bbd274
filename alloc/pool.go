package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/region"
)

// Pool hands out fixed-size slots from a region partitioned at construction.
//
// Free slots form a singly-linked list threaded through the slots themselves:
// the first 8 bytes of a free slot hold the offset of the next free slot. The
// link is only meaningful while the slot is free; once handed out those bytes
// belong to the caller.
type Pool struct {
	r    *region.Region
	data []byte

	blockSize  int // size requested by the caller
	slotSize   int // blockSize raised to hold a link and rounded to 8
	blockCount int

	head  int // offset of the first free slot, -1 when exhausted
	used  int // slots handed out
	epoch uint32

	// live holds the allocation sequence of each handed-out slot (0 when
	// free), only kept with Options.Debug.
	live []uint64
	seq  uint64

	log *slog.Logger
}

// NewPool partitions r into blockCount slots able to hold blockSize bytes each.
//
// The effective slot size is max(blockSize, 8) rounded up to 8, and r must
// hold slotSize*blockCount bytes.
func NewPool(r *region.Region, blockSize, blockCount int, opts *Options) (*Pool, error) {
	if r == nil {
		return nil, ErrNilRegion
	}
	if r.Closed() {
		return nil, ErrUninitialized
	}
	if blockSize <= 0 || blockCount <= 0 {
		return nil, fmt.Errorf("%w: block size %d, count %d", ErrInvalidSize, blockSize, blockCount)
	}

	slot, ok := format.Align8Checked(max(blockSize, format.WordSize))
	if !ok {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidSize, blockSize)
	}
	need, ok := buf.MulOverflowSafe(slot, blockCount)
	if !ok || need > r.Len() {
		return nil, fmt.Errorf("%w: %d slots of %d bytes need %d, have %d",
			ErrRegionTooSmall, blockCount, slot, need, r.Len())
	}

	p := &Pool{
		r:          r,
		data:       r.Bytes(),
		blockSize:  blockSize,
		slotSize:   slot,
		blockCount: blockCount,
		epoch:      1,
		log:        opts.logger(),
	}
	if opts.debug() {
		p.live = make([]uint64, blockCount)
	}
	p.thread()
	return p, nil
}

// thread links every slot into the free list in one pass, back to front, so
// that slot 0 ends up at the head.
func (p *Pool) thread() {
	p.head = -1
	for i := p.blockCount - 1; i >= 0; i-- {
		off := i * p.slotSize
		format.PutLink(p.data, off, p.head)
		p.head = off
	}
	p.used = 0
	clear(p.live)
}

// Alloc pops a slot off the free list, or returns ErrExhausted.
// The payload is blockSize bytes; its contents are unspecified.
func (p *Pool) Alloc() (Ref, []byte, error) {
	if p == nil {
		return Ref{}, nil, ErrNilAllocator
	}
	if p.data == nil {
		return Ref{}, nil, ErrUninitialized
	}
	if p.head < 0 {
		p.log.Debug("pool: exhausted", "blocks", p.blockCount, "block_size", p.blockSize)
		return Ref{}, nil, ErrExhausted
	}

	off := p.head
	p.head = format.Link(p.data, off)
	p.used++
	ref := Ref{Off: off, Len: p.blockSize, gen: p.epoch}
	if p.live != nil {
		p.seq++
		p.live[off/p.slotSize] = p.seq
		ref.seq = p.seq
	}
	return ref, p.data[off : off+p.blockSize : off+p.blockSize], nil
}

// Free pushes ref's slot back onto the free list. The zero Ref is a no-op.
//
// Refs from before the last Reset fail with ErrStaleRef and offsets that are
// not on the slot grid fail with ErrBadRef. Freeing the same ref twice is only
// detected with Options.Debug (or when nothing is allocated at all); Debug also
// rejects a freed ref whose slot was handed out again with ErrStaleRef.
func (p *Pool) Free(ref Ref) error {
	if p == nil {
		return ErrNilAllocator
	}
	if ref.IsNil() {
		return nil
	}
	if err := p.check(ref); err != nil {
		p.log.Debug("pool: rejected free", "off", ref.Off, "err", err)
		return err
	}

	format.PutLink(p.data, ref.Off, p.head)
	p.head = ref.Off
	p.used--
	if p.live != nil {
		p.live[ref.Off/p.slotSize] = 0
	}
	return nil
}

// check validates ref without touching any state.
func (p *Pool) check(ref Ref) error {
	if p.data == nil {
		return ErrUninitialized
	}
	if ref.gen != p.epoch {
		return ErrStaleRef
	}
	if ref.Off < 0 || ref.Off >= p.slotSize*p.blockCount || ref.Off%p.slotSize != 0 {
		return ErrBadRef
	}
	if p.used == 0 {
		return ErrDoubleFree
	}
	if p.live != nil {
		switch p.live[ref.Off/p.slotSize] {
		case 0:
			return ErrDoubleFree
		case ref.seq:
		default:
			return ErrStaleRef
		}
	}
	return nil
}

// Bytes returns the payload for a live ref.
func (p *Pool) Bytes(ref Ref) ([]byte, error) {
	if p == nil {
		return nil, ErrNilAllocator
	}
	if ref.IsNil() {
		return nil, nil
	}
	if err := p.check(ref); err != nil {
		return nil, err
	}
	return p.data[ref.Off : ref.Off+p.blockSize : ref.Off+p.blockSize], nil
}

// Reset returns every slot to the free list and invalidates all refs.
func (p *Pool) Reset() {
	if p == nil || p.data == nil {
		return
	}
	p.thread()
	p.epoch++
}

// Used returns the number of slots handed out.
func (p *Pool) Used() int {
	if p == nil {
		return 0
	}
	return p.used
}

// Available returns the number of free slots.
func (p *Pool) Available() int {
	if p == nil {
		return 0
	}
	return p.blockCount - p.used
}

// BlockSize returns the payload size of each slot as requested at construction.
func (p *Pool) BlockSize() int {
	if p == nil {
		return 0
	}
	return p.blockSize
}

// SlotSize returns the effective per-slot stride in the region.
func (p *Pool) SlotSize() int {
	if p == nil {
		return 0
	}
	return p.slotSize
}

// BlockCount returns the number of slots.
func (p *Pool) BlockCount() int {
	if p == nil {
		return 0
	}
	return p.blockCount
}

// Stats reports capacity and usage in bytes of slot stride.
//
// Capacity is slotSize*blockCount: region bytes past the last slot are never
// handed out and are not counted. A pool never owns its region, so Owned is
// always false.
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{Kind: KindPool}
	}
	return Stats{
		Kind:     KindPool,
		Base:     p.r.Base(),
		Capacity: p.slotSize * p.blockCount,
		Used:     p.slotSize * p.used,
	}
}
