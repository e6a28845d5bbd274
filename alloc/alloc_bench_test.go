package alloc

import (
	"testing"
)

const benchRegionSize = 1 << 20

// BenchmarkBump_Alloc measures bump allocation throughput, resetting when full.
func BenchmarkBump_Alloc(b *testing.B) {
	ba, err := NewBump(newTestRegion(b, benchRegionSize), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		size := 64 + (i%64)*2 // 64-190 bytes
		if _, _, err := ba.Alloc(size); err != nil {
			ba.Reset()
		}
	}
}

// BenchmarkStack_Scope measures a marker, a few allocations and an unwind.
func BenchmarkStack_Scope(b *testing.B) {
	s, err := NewStack(newTestRegion(b, benchRegionSize), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		m := s.Marker()
		for range 4 {
			if _, _, err := s.Alloc(128); err != nil {
				b.Fatal(err)
			}
		}
		if err := s.FreeToMarker(m); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPool_AllocFree measures a slot round trip.
func BenchmarkPool_AllocFree(b *testing.B) {
	p, err := NewPool(newTestRegion(b, benchRegionSize), 64, benchRegionSize/64, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		ref, _, err := p.Alloc()
		if err != nil {
			b.Fatal(err)
		}
		if err := p.Free(ref); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFreeList_AllocFree measures first-fit with a fragmented list.
func BenchmarkFreeList_AllocFree(b *testing.B) {
	fl, err := NewFreeList(newTestRegion(b, benchRegionSize), nil)
	if err != nil {
		b.Fatal(err)
	}
	// Leave every other block allocated so the list has many small holes.
	var refs []Ref
	for range 256 {
		ref, _, err := fl.Alloc(56)
		if err != nil {
			b.Fatal(err)
		}
		refs = append(refs, ref)
	}
	for i := 0; i < len(refs); i += 2 {
		if err := fl.Free(refs[i]); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		size := 32 + (i%16)*8
		ref, _, err := fl.Alloc(size)
		if err != nil {
			b.Fatal(err)
		}
		if err := fl.Free(ref); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGoHeap_Alloc is the baseline the allocators are compared against.
func BenchmarkGoHeap_Alloc(b *testing.B) {
	b.ReportAllocs()

	var sink []byte
	for i := range b.N {
		sink = make([]byte, 64+(i%64)*2)
	}
	_ = sink
}
