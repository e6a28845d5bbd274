package alloc

import "errors"

var (
	// ErrNilRegion indicates a constructor was handed a nil region.
	ErrNilRegion = errors.New("alloc: nil region")

	// ErrNilAllocator indicates a method was called on a nil allocator.
	ErrNilAllocator = errors.New("alloc: nil allocator")

	// ErrUninitialized indicates use of a zero-value or destroyed allocator.
	ErrUninitialized = errors.New("alloc: allocator not initialized")

	// ErrInvalidSize indicates a non-positive region, block size or block count.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrZeroSize indicates a zero-byte (or negative) allocation request.
	ErrZeroSize = errors.New("alloc: zero-size request")

	// ErrRegionTooSmall indicates the region cannot hold the requested layout.
	ErrRegionTooSmall = errors.New("alloc: region too small")

	// ErrNoSpace indicates a bump or stack allocator has too little room left.
	ErrNoSpace = errors.New("alloc: not enough space")

	// ErrExhausted indicates every pool slot is in use.
	ErrExhausted = errors.New("alloc: pool exhausted")

	// ErrNoFit indicates no free block is large enough for the request.
	ErrNoFit = errors.New("alloc: no free block large enough")

	// ErrStaleRef indicates a ref issued before the last reset or destroy,
	// or one that a stack rollback has already reclaimed.
	ErrStaleRef = errors.New("alloc: stale reference")

	// ErrBadRef indicates a ref that does not name an allocation of this allocator.
	ErrBadRef = errors.New("alloc: bad reference")

	// ErrDoubleFree indicates a ref whose allocation is already free.
	ErrDoubleFree = errors.New("alloc: double free")

	// ErrForeignMarker indicates a marker taken from a different stack.
	ErrForeignMarker = errors.New("alloc: marker belongs to another stack")

	// ErrStaleMarker indicates a marker taken before the last reset.
	ErrStaleMarker = errors.New("alloc: stale marker")

	// ErrBadMarker indicates a marker above the current stack top.
	ErrBadMarker = errors.New("alloc: marker above stack top")
)
