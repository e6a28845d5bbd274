package format

import "math"

// Alignment is the boundary every offset handed out by an allocator sits on.
const Alignment = 8

// AlignmentMask is Alignment-1, used to round sizes up.
const AlignmentMask = Alignment - 1

// Align8 returns n rounded up to the next multiple of 8.
// The caller must ensure n+7 does not overflow; use Align8Checked otherwise.
//
// Example:
//
//	Align8(1)   = 8
//	Align8(100) = 104
//	Align8(256) = 256
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// Align8Checked rounds n up to a multiple of 8, reporting ok = false when
// n is negative or the rounded value does not fit in an int.
func Align8Checked(n int) (int, bool) {
	if n < 0 || n > math.MaxInt-AlignmentMask {
		return 0, false
	}
	return Align8(n), true
}

// IsAligned8 reports whether n is a multiple of 8.
func IsAligned8(n int) bool {
	return n&AlignmentMask == 0
}

// PadTo8 returns the number of bytes needed to move addr up to the next
// 8-byte boundary.
func PadTo8(addr uintptr) int {
	return int((Alignment - addr%Alignment) % Alignment)
}
