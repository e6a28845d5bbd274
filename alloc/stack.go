package alloc

import (
	"github.com/joshuapare/memkit/region"
)

// Stack allocates linearly like Bump and rolls back to markers in LIFO order.
//
// Typical scoped use:
//
//	m := st.Marker()
//	defer st.FreeToMarker(m)
//	// allocate freely; everything is reclaimed on return
type Stack struct {
	linear
}

// Marker is an opaque snapshot of a stack's cursor. It is only meaningful to
// the stack that produced it, and only until that stack is reset.
type Marker struct {
	top   int
	gen   uint32
	owner *Stack
}

// Offset returns the cursor position the marker captured.
func (m Marker) Offset() int { return m.top }

// NewStack binds a stack allocator to a caller-owned region.
func NewStack(r *region.Region, opts *Options) (*Stack, error) {
	s := &Stack{}
	if err := s.init(r, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Alloc reserves n bytes, rounded up to a multiple of 8.
func (s *Stack) Alloc(n int) (Ref, []byte, error) {
	if s == nil {
		return Ref{}, nil, ErrNilAllocator
	}
	return s.alloc(KindStack, n)
}

// Bytes returns the payload for ref. A ref above the current top has been
// rolled back and is reported as ErrStaleRef.
func (s *Stack) Bytes(ref Ref) ([]byte, error) {
	if s == nil {
		return nil, ErrNilAllocator
	}
	return s.bytes(ref)
}

// Marker captures the current top.
func (s *Stack) Marker() Marker {
	if s == nil {
		return Marker{}
	}
	return Marker{top: s.used, gen: s.epoch, owner: s}
}

// FreeToMarker discards everything allocated after m was captured.
//
// Markers from another stack, markers taken before the last Reset, and
// markers above the current top (already invalidated by releasing an older
// marker) are rejected and leave the stack untouched.
func (s *Stack) FreeToMarker(m Marker) error {
	if s == nil {
		return ErrNilAllocator
	}
	if s.data == nil {
		return ErrUninitialized
	}
	switch {
	case m.owner != s:
		return ErrForeignMarker
	case m.gen != s.epoch:
		return ErrStaleMarker
	case m.top > s.used:
		s.log.Debug("stack: marker above top", "marker", m.top, "used", s.used)
		return ErrBadMarker
	}
	s.used = m.top
	return nil
}

// Reset frees to the bottom of the stack and invalidates all refs and markers.
func (s *Stack) Reset() {
	if s == nil {
		return
	}
	s.reset()
}

// Destroy detaches the stack from its region. Calling it again is a no-op.
func (s *Stack) Destroy() error {
	if s == nil {
		return nil
	}
	return s.detach(false)
}

// Used returns the current top.
func (s *Stack) Used() int {
	if s == nil {
		return 0
	}
	return s.used
}

// Remaining returns Cap() - Used().
func (s *Stack) Remaining() int {
	if s == nil {
		return 0
	}
	return len(s.data) - s.used
}

// Cap returns the region capacity.
func (s *Stack) Cap() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// Stats returns a snapshot for status reporting.
func (s *Stack) Stats() Stats {
	if s == nil {
		return Stats{Kind: KindStack}
	}
	return s.stats(KindStack, false)
}
