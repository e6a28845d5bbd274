package alloc

import (
	"log/slog"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/region"
)

// linear is the cursor shared by Bump and Stack: a high-water mark over one
// region that only ever moves forward between explicit rollbacks.
type linear struct {
	r    *region.Region
	data []byte

	// used is the offset where the next allocation starts. Always a
	// multiple of 8 and never greater than len(data).
	used int

	// epoch is stamped into every Ref and advanced on reset/destroy.
	epoch uint32

	log *slog.Logger
}

func (l *linear) init(r *region.Region, opts *Options) error {
	if r == nil {
		return ErrNilRegion
	}
	if r.Closed() {
		return ErrUninitialized
	}
	l.r = r
	l.data = r.Bytes()
	l.used = 0
	l.epoch = 1
	l.log = opts.logger()
	return nil
}

func (l *linear) alloc(kind Kind, n int) (Ref, []byte, error) {
	if l.data == nil {
		return Ref{}, nil, ErrUninitialized
	}
	if n <= 0 {
		return Ref{}, nil, ErrZeroSize
	}

	// Both the rounding and the advance are checked before comparing
	// against capacity, so a huge request cannot wrap around.
	aligned, ok := format.Align8Checked(n)
	if !ok {
		return Ref{}, nil, ErrNoSpace
	}
	end, ok := buf.AddOverflowSafe(l.used, aligned)
	if !ok || end > len(l.data) {
		l.log.Debug("alloc: exhausted", "kind", kind, "request", n, "aligned", aligned,
			"used", l.used, "cap", len(l.data))
		return Ref{}, nil, ErrNoSpace
	}

	off := l.used
	l.used = end
	return Ref{Off: off, Len: n, gen: l.epoch}, l.data[off : off+n : off+n], nil
}

// bytes validates ref against the current epoch and cursor.
func (l *linear) bytes(ref Ref) ([]byte, error) {
	if l.data == nil {
		return nil, ErrUninitialized
	}
	if ref.IsNil() {
		return nil, nil
	}
	if ref.gen != l.epoch {
		return nil, ErrStaleRef
	}
	if ref.Off < 0 || ref.Len < 0 || !format.IsAligned8(ref.Off) {
		return nil, ErrBadRef
	}
	if ref.End() > l.used {
		return nil, ErrStaleRef
	}
	return l.data[ref.Off:ref.End():ref.End()], nil
}

func (l *linear) reset() {
	l.used = 0
	l.epoch++
}

// detach drops the region, closing it first when the allocator owns it.
// Safe to call repeatedly.
func (l *linear) detach(owned bool) error {
	if l.r == nil {
		return nil
	}
	var err error
	if owned {
		err = l.r.Close()
	}
	l.r, l.data, l.used = nil, nil, 0
	l.epoch++
	return err
}

func (l *linear) stats(kind Kind, owned bool) Stats {
	return Stats{
		Kind:     kind,
		Base:     l.r.Base(),
		Capacity: len(l.data),
		Used:     l.used,
		Owned:    owned,
	}
}
