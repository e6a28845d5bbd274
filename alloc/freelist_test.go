package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFreeList creates a free list over a fresh region and checks it.
func newTestFreeList(t *testing.T, size int, opts *Options) *FreeList {
	t.Helper()
	fl, err := NewFreeList(newTestRegion(t, size), opts)
	require.NoError(t, err)
	require.NoError(t, fl.Check())
	return fl
}

// allocOK allocates n bytes and fails the test on error.
func allocOK(t *testing.T, fl *FreeList, n int) Ref {
	t.Helper()
	ref, _, err := fl.Alloc(n)
	require.NoError(t, err, "Alloc(%d)", n)
	require.NoError(t, fl.Check())
	return ref
}

// freeOK frees ref and fails the test on error.
func freeOK(t *testing.T, fl *FreeList, ref Ref) {
	t.Helper()
	require.NoError(t, fl.Free(ref))
	require.NoError(t, fl.Check())
}

// TestFreeList_Init tests the single spanning block.
func TestFreeList_Init(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	assert.Equal(t, []Block{{Off: 0, Size: 1024}}, fl.FreeBlocks())
	assert.Zero(t, fl.Used())
	assert.Equal(t, 1024, fl.Available())

	_, err := NewFreeList(newTestRegion(t, 8), nil)
	assert.ErrorIs(t, err, ErrRegionTooSmall)
	_, err = NewFreeList(nil, nil)
	assert.ErrorIs(t, err, ErrNilRegion)
}

// TestFreeList_CoalescingRoundTrip tests the A/B/C/D scenario: the gap left
// by B is reused first-fit, and freeing everything restores one block.
func TestFreeList_CoalescingRoundTrip(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)

	a := allocOK(t, fl, 100)
	b := allocOK(t, fl, 200)
	c := allocOK(t, fl, 50)
	assert.Equal(t, 8, a.Off)
	assert.Equal(t, 120, b.Off)
	assert.Equal(t, 328, c.Off)
	assert.Equal(t, 112+208+64, fl.Used())

	before := fl.Used()
	freeOK(t, fl, b)
	assert.Equal(t, before-208, fl.Used(), "used drops by B's block size")

	d := allocOK(t, fl, 150)
	assert.Equal(t, b.Off, d.Off, "first fit reuses B's gap instead of going past C")
	assert.Less(t, d.Off, c.Off)

	freeOK(t, fl, a)
	freeOK(t, fl, c)
	freeOK(t, fl, d)

	assert.Zero(t, fl.Used())
	assert.Equal(t, []Block{{Off: 0, Size: 1024}}, fl.FreeBlocks())
}

// TestFreeList_FreeOrders tests full coalescing for every release order.
func TestFreeList_FreeOrders(t *testing.T) {
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		fl := newTestFreeList(t, 1024, nil)
		refs := []Ref{allocOK(t, fl, 100), allocOK(t, fl, 150), allocOK(t, fl, 50)}
		for _, i := range order {
			freeOK(t, fl, refs[i])
		}
		assert.Len(t, fl.FreeBlocks(), 1, "order %v", order)
		assert.Zero(t, fl.Used(), "order %v", order)
	}
}

// TestFreeList_SplitVersusWholeBlock tests the split threshold.
func TestFreeList_SplitVersusWholeBlock(t *testing.T) {
	// 40+8=48, leaving exactly a minimum block: split.
	fl := newTestFreeList(t, 64, nil)
	ref := allocOK(t, fl, 40)
	assert.Equal(t, 48, fl.Used())
	assert.Equal(t, []Block{{Off: 48, Size: 16}}, fl.FreeBlocks())
	assert.Equal(t, 1, fl.Counters().Splits)
	freeOK(t, fl, ref)

	// 44+8=52 rounds to 56, leaving 8 bytes: hand out the whole block.
	ref = allocOK(t, fl, 44)
	assert.Equal(t, 64, fl.Used(), "the sliver is internal fragmentation")
	assert.Empty(t, fl.FreeBlocks())
	assert.Equal(t, 1, fl.Counters().WholeBlocks)
	assert.Equal(t, 44, ref.Len)

	_, _, err := fl.Alloc(1)
	assert.ErrorIs(t, err, ErrNoFit)

	freeOK(t, fl, ref)
	assert.Zero(t, fl.Used(), "the whole block's size is restored on free")
}

// TestFreeList_MinimumBlock tests that tiny requests still reserve a block
// able to hold the free-list header.
func TestFreeList_MinimumBlock(t *testing.T) {
	fl := newTestFreeList(t, 128, nil)
	a := allocOK(t, fl, 1)
	b := allocOK(t, fl, 8)
	assert.Equal(t, 16, b.Off-a.Off)
	assert.Equal(t, 32, fl.Used())
}

// TestFreeList_CoalesceForward tests merging with the following free block only.
func TestFreeList_CoalesceForward(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	_ = allocOK(t, fl, 24)
	_ = allocOK(t, fl, 24)
	c := allocOK(t, fl, 24)

	freeOK(t, fl, c)
	assert.Equal(t, []Block{{Off: 64, Size: 960}}, fl.FreeBlocks())
	assert.Equal(t, 1, fl.Counters().CoalesceForward)
	assert.Zero(t, fl.Counters().CoalesceBackward)
}

// TestFreeList_CoalesceBackward tests merging with the preceding free block only.
func TestFreeList_CoalesceBackward(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	a := allocOK(t, fl, 24)
	b := allocOK(t, fl, 24)
	_ = allocOK(t, fl, 24)

	freeOK(t, fl, a)
	freeOK(t, fl, b)
	assert.Equal(t, []Block{{Off: 0, Size: 64}, {Off: 96, Size: 928}}, fl.FreeBlocks())
	assert.Equal(t, 1, fl.Counters().CoalesceBackward)
	assert.Zero(t, fl.Counters().CoalesceForward)
}

// TestFreeList_CoalesceBidirectional tests a block bridging two free neighbours.
func TestFreeList_CoalesceBidirectional(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	a := allocOK(t, fl, 24)
	b := allocOK(t, fl, 24)
	c := allocOK(t, fl, 24)
	_ = allocOK(t, fl, 24)

	freeOK(t, fl, a)
	freeOK(t, fl, c)
	require.Len(t, fl.FreeBlocks(), 3)

	freeOK(t, fl, b)
	assert.Equal(t, []Block{{Off: 0, Size: 96}, {Off: 128, Size: 896}}, fl.FreeBlocks())
	cnt := fl.Counters()
	assert.Equal(t, 1, cnt.CoalesceForward)
	assert.Equal(t, 1, cnt.CoalesceBackward)
}

// TestFreeList_NoFitLeavesStateUnchanged tests the exhaustion path.
func TestFreeList_NoFitLeavesStateUnchanged(t *testing.T) {
	fl := newTestFreeList(t, 256, nil)
	a := allocOK(t, fl, 64)
	_ = allocOK(t, fl, 64)
	_ = allocOK(t, fl, 64)
	freeOK(t, fl, a)

	// 72+40 bytes are free in total but not contiguously.
	blocks := fl.FreeBlocks()
	used := fl.Used()
	_, _, err := fl.Alloc(80)
	require.ErrorIs(t, err, ErrNoFit)
	assert.Equal(t, blocks, fl.FreeBlocks())
	assert.Equal(t, used, fl.Used())

	_, _, err = fl.Alloc(0)
	assert.ErrorIs(t, err, ErrZeroSize)
}

// TestFreeList_DoubleFree tests detection that falls out of the insertion scan.
func TestFreeList_DoubleFree(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	a := allocOK(t, fl, 24)
	b := allocOK(t, fl, 24)
	_ = allocOK(t, fl, 24)

	freeOK(t, fl, a)
	assert.ErrorIs(t, fl.Free(a), ErrDoubleFree, "block is a free-list entry")

	// b merges backward into a; its old header is now inside a free block.
	freeOK(t, fl, b)
	used := fl.Used()
	assert.ErrorIs(t, fl.Free(b), ErrDoubleFree, "block lies inside a free block")
	assert.Equal(t, used, fl.Used())
	require.NoError(t, fl.Check())
}

// TestFreeList_BadAndStaleRefs tests ref validation.
func TestFreeList_BadAndStaleRefs(t *testing.T) {
	fl := newTestFreeList(t, 512, nil)
	ref := allocOK(t, fl, 40)

	require.NoError(t, fl.Free(Ref{}), "nil ref is a no-op")

	bad := ref
	bad.Off = 3
	assert.ErrorIs(t, fl.Free(bad), ErrBadRef, "header would start before the region")
	bad.Off = 12
	assert.ErrorIs(t, fl.Free(bad), ErrBadRef, "misaligned header")
	bad.Off = 512
	assert.ErrorIs(t, fl.Free(bad), ErrBadRef, "header past the end")
	bad.Off = ref.Off + 16
	assert.ErrorIs(t, fl.Free(bad), ErrBadRef, "zeroed payload is not a header")
	require.NoError(t, fl.Check())

	fl.Reset()
	assert.ErrorIs(t, fl.Free(ref), ErrStaleRef)
	_, err := fl.Bytes(ref)
	assert.ErrorIs(t, err, ErrStaleRef)
	assert.Equal(t, []Block{{Off: 0, Size: 512}}, fl.FreeBlocks())
}

// TestFreeList_DebugLiveSet tests the optional live-block set.
func TestFreeList_DebugLiveSet(t *testing.T) {
	fl := newTestFreeList(t, 256, &Options{Debug: true})
	a := allocOK(t, fl, 32)
	_ = allocOK(t, fl, 32)

	freeOK(t, fl, a)
	assert.ErrorIs(t, fl.Free(a), ErrDoubleFree)

	_, err := fl.Bytes(a)
	assert.ErrorIs(t, err, ErrDoubleFree)
}

// TestFreeList_DebugRejectsReusedBlock tests that a freed ref cannot release
// the block after the same offset has been allocated again.
func TestFreeList_DebugRejectsReusedBlock(t *testing.T) {
	fl := newTestFreeList(t, 256, &Options{Debug: true})
	a := allocOK(t, fl, 32)
	_ = allocOK(t, fl, 32)
	freeOK(t, fl, a)

	c, payload, err := fl.Alloc(32)
	require.NoError(t, err)
	require.Equal(t, a.Off, c.Off, "first fit reuses the freed block")
	fill(payload, 0xC3)
	used := fl.Used()

	assert.ErrorIs(t, fl.Free(a), ErrStaleRef)
	_, err = fl.Bytes(a)
	assert.ErrorIs(t, err, ErrStaleRef)
	assert.Equal(t, used, fl.Used())
	require.NoError(t, fl.Check())

	got, err := fl.Bytes(c)
	require.NoError(t, err)
	assert.True(t, intact(got, 0xC3))
	freeOK(t, fl, c)
}

// TestFreeList_PayloadsSurvive tests that headers never overwrite live payloads.
func TestFreeList_PayloadsSurvive(t *testing.T) {
	fl := newTestFreeList(t, 2048, nil)

	var refs []Ref
	for i, n := range []int{7, 33, 120, 64, 1, 250, 16} {
		ref, payload, err := fl.Alloc(n)
		require.NoError(t, err)
		fill(payload, byte(i*17))
		refs = append(refs, ref)
	}
	// Free every other allocation to force splits and merges around the rest.
	for i := 0; i < len(refs); i += 2 {
		freeOK(t, fl, refs[i])
	}
	_ = allocOK(t, fl, 20)
	_ = allocOK(t, fl, 90)

	for i := 1; i < len(refs); i += 2 {
		p, err := fl.Bytes(refs[i])
		require.NoError(t, err)
		assert.True(t, intact(p, byte(i*17)), "payload %d corrupted", i)
	}
}

// TestFreeList_OddCapacity tests a region whose length is not a multiple of 8.
func TestFreeList_OddCapacity(t *testing.T) {
	fl := newTestFreeList(t, 100, nil)
	a := allocOK(t, fl, 40)
	b := allocOK(t, fl, 40)
	assert.Equal(t, 8, a.Off)
	assert.Equal(t, 56, b.Off)
	assert.Equal(t, 100, fl.Used(), "b takes the 52-byte tail whole")

	freeOK(t, fl, a)
	freeOK(t, fl, b)
	assert.Equal(t, []Block{{Off: 0, Size: 100}}, fl.FreeBlocks())
}

// TestFreeList_Stats tests the status snapshot.
func TestFreeList_Stats(t *testing.T) {
	fl := newTestFreeList(t, 1024, nil)
	_ = allocOK(t, fl, 100)

	st := fl.Stats()
	assert.Equal(t, KindFreeList, st.Kind)
	assert.Equal(t, 1024, st.Capacity)
	assert.Equal(t, 112, st.Used)
	assert.InDelta(t, 112.0/1024.0, st.Utilization(), 1e-9)
}

// TestCheck_DetectsCorruption tests that Check notices broken headers.
func TestCheck_DetectsCorruption(t *testing.T) {
	fl := newTestFreeList(t, 256, nil)
	a := allocOK(t, fl, 24)
	_ = allocOK(t, fl, 24)

	// Inflate a's header so the walk overlaps the next block.
	fl.setSize(a.Off-blockHeaderSize, 48)
	err := fl.Check()
	var inv *InvariantError
	require.ErrorAs(t, err, &inv)
}
