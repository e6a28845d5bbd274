package alloc

import "fmt"

// InvariantError reports a broken free-list invariant found by Check.
type InvariantError struct {
	Off int // offset of the offending block, -1 when not block-specific
	Msg string
}

func (e *InvariantError) Error() string {
	if e.Off < 0 {
		return "alloc: invariant violation: " + e.Msg
	}
	return fmt.Sprintf("alloc: invariant violation at 0x%X: %s", e.Off, e.Msg)
}

func violation(off int, format string, args ...any) error {
	return &InvariantError{Off: off, Msg: fmt.Sprintf(format, args...)}
}

// Check walks the whole region and verifies:
//
//   - block headers tile [0, Cap()) with no gap and no overlap
//   - every free-list entry is a block on that walk, in ascending order
//   - no two free blocks are adjacent (coalescing is complete)
//   - the sum of non-free block sizes equals Used()
//
// It is O(blocks) and meant for tests and diagnostics, not hot paths.
func (fl *FreeList) Check() error {
	if fl == nil || fl.data == nil {
		return ErrUninitialized
	}

	free := make(map[int]int)
	last, lastEnd := -1, -1
	for cur := fl.head; cur >= 0; cur = fl.next(cur) {
		if cur <= last {
			return violation(cur, "free list not ascending (after 0x%X)", last)
		}
		if cur+minBlockSize > len(fl.data) {
			return violation(cur, "free block header outside region")
		}
		size := fl.size(cur)
		if size < minBlockSize || cur+size > len(fl.data) {
			return violation(cur, "free block size %d out of range", size)
		}
		if cur == lastEnd {
			return violation(cur, "free block adjacent to free block at 0x%X", last)
		}
		if cur < lastEnd {
			return violation(cur, "free block overlaps free block at 0x%X", last)
		}
		free[cur] = size
		last, lastEnd = cur, cur+size
		if len(free) > len(fl.data)/minBlockSize {
			return violation(-1, "free list cycle")
		}
	}

	var live, seen int
	off := 0
	for off < len(fl.data) {
		if off+minBlockSize > len(fl.data) {
			return violation(off, "gap of %d bytes at end of region", len(fl.data)-off)
		}
		size := fl.size(off)
		if size < minBlockSize || off+size > len(fl.data) {
			return violation(off, "block size %d out of range", size)
		}
		if _, ok := free[off]; ok {
			seen++
		} else {
			live += size
		}
		off += size
	}
	if off != len(fl.data) {
		return violation(off, "blocks overrun region end %d", len(fl.data))
	}
	if seen != len(free) {
		return violation(-1, "%d free-list entries are not block boundaries", len(free)-seen)
	}
	if live != fl.used {
		return violation(-1, "live bytes %d != used %d", live, fl.used)
	}
	return nil
}
