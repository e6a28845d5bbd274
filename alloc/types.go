package alloc

import (
	"log/slog"

	"github.com/joshuapare/memkit/internal/logger"
)

// Kind names an allocation strategy.
type Kind string

const (
	KindBump     Kind = "bump"
	KindPool     Kind = "pool"
	KindStack    Kind = "stack"
	KindFreeList Kind = "freelist"
)

// Ref is the capability returned for every allocation.
//
// Off is the payload offset within the region and Len the requested length.
// The zero Ref is the null allocation.
type Ref struct {
	Off int
	Len int
	gen uint32
	seq uint64 // allocation sequence, set only with Options.Debug
}

// IsNil reports whether r is the null allocation.
func (r Ref) IsNil() bool { return r.Len == 0 }

// End returns the offset one past the payload.
func (r Ref) End() int { return r.Off + r.Len }

// Stats is a point-in-time summary used for status reporting.
type Stats struct {
	Kind     Kind
	Base     uintptr // address of the region's first byte, 0 when detached
	Capacity int     // bytes under management
	Used     int     // bytes handed out, including alignment and headers
	Owned    bool    // region is released by the allocator
}

// Free returns Capacity - Used.
func (s Stats) Free() int { return s.Capacity - s.Used }

// Utilization returns Used/Capacity in [0, 1].
func (s Stats) Utilization() float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

// Options configures an allocator at construction. A nil *Options means defaults.
type Options struct {
	// Logger receives debug records on slow paths (exhaustion, rejected refs,
	// destroy). Default: logger.L.
	Logger *slog.Logger

	// Debug enables double-free detection that needs extra bookkeeping
	// (a sequence per live slot for Pool, per live block for FreeList). A
	// freed ref whose slot or block was handed out again fails with
	// ErrStaleRef instead of releasing the new owner's memory.
	Debug bool
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return logger.L
	}
	return o.Logger
}

func (o *Options) debug() bool {
	return o != nil && o.Debug
}

// Allocator is implemented by the variable-size strategies (Bump, Stack, FreeList).
type Allocator interface {
	// Alloc reserves n bytes and returns the ref and the n-byte payload.
	Alloc(n int) (Ref, []byte, error)

	// Bytes returns the payload of a live ref.
	Bytes(ref Ref) ([]byte, error)

	// Reset reclaims every allocation at once and invalidates all refs.
	Reset()

	// Used returns the bytes currently handed out.
	Used() int

	Stats() Stats
}

// Stater is implemented by every allocator, including Pool.
type Stater interface {
	Stats() Stats
}

// Compile-time interface checks
var (
	_ Allocator = (*Bump)(nil)
	_ Allocator = (*Stack)(nil)
	_ Allocator = (*FreeList)(nil)
	_ Stater    = (*Pool)(nil)
)
