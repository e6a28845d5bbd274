// Package alloc provides four manual allocation strategies over a single
// fixed-size region.
//
// # Overview
//
// Every allocator binds to exactly one region.Region at construction and
// carves disjoint, 8-byte aligned byte ranges out of it. None of them grow,
// none of them depend on each other, and none of them are safe for concurrent
// use: an allocator is owned by one goroutine, and callers that share one must
// synchronize externally.
//
// # Implementations
//
// Bump: linear high-water-mark allocation
//
//   - O(1) Alloc, O(1) Reset, no individual release
//   - NewOwnedBump reserves its own region and gives it back on Destroy
//
// Pool: fixed-size slots
//
//   - O(1) Alloc and Free via an intrusive singly-linked free list
//   - the link lives in the first 8 bytes of each free slot
//
// Stack: linear allocation with rollback
//
//   - Marker captures the cursor, FreeToMarker rolls back to it
//   - markers must be released in LIFO order
//
// FreeList: variable-size allocation with individual release
//
//   - first-fit scan of an address-ordered free list
//   - blocks are split on allocation and coalesced with both neighbours on free
//
// # Refs and epochs
//
// Alloc returns a Ref together with the payload slice. A Ref records the
// allocator's epoch at the time it was issued; Reset and Destroy advance the
// epoch, so a Ref that outlived its allocation is rejected with ErrStaleRef
// instead of silently aliasing newer data. The zero Ref is the null
// allocation: releasing it is a no-op.
//
// The payload slices themselves are plain views into the region. Holding on to
// one across Reset is the caller's bug, exactly as with a raw pointer.
//
// # Usage Example
//
//	r, err := region.New(make([]byte, 1024))
//	if err != nil {
//	    return err
//	}
//	fl, err := alloc.NewFreeList(r, nil)
//	if err != nil {
//	    return err
//	}
//
//	ref, payload, err := fl.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(payload, record)
//
//	// Later
//	err = fl.Free(ref)
//
// # Alignment
//
// All returned offsets are multiples of 8 from an 8-byte aligned base. No
// other alignment can be requested.
package alloc
