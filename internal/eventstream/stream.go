package eventstream

import (
	"context"
	"iter"
	"time"

	"github.com/replicante-io/replicore/internal/rcmodel"
)

// Filter narrows a Scan to events whose Code's family matches one of
// KindPrefixes (an empty slice matches every family) and whose Timestamp
// falls within [Since, Until) (a zero value on either bound means
// unbounded).
type Filter struct {
	KindPrefixes []string
	Since        time.Time
	Until        time.Time
}

// Matches reports whether an event satisfies the filter.
func (f Filter) Matches(e rcmodel.Event) bool {
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
		return false
	}
	if len(f.KindPrefixes) == 0 {
		return true
	}
	family := e.Code.Family()
	for _, prefix := range f.KindPrefixes {
		if family == prefix {
			return true
		}
	}
	return false
}

// Options controls Scan's result order and size.
type Options struct {
	// Reverse returns newest-first when true, oldest-first otherwise.
	Reverse bool
	// Limit caps the number of yielded records; zero means unbounded.
	Limit int
}

// Backend is the storage port a Stream writes through and scans from.
// The store-backed implementation (spec.md §4.2's reference shape)
// satisfies this by delegating straight to the primary store's legacy
// event operations; nothing in this package imports internal/store
// directly, so a broker-backed Backend can be substituted without this
// package changing.
type Backend interface {
	AppendEvent(ctx context.Context, event rcmodel.Event) error
	ScanEvents(ctx context.Context, filter Filter, options Options) iter.Seq2[rcmodel.Event, error]
}

// Stream is the append-only event log interface the rest of the pipeline
// depends on (spec.md §4.2).
type Stream interface {
	// Emit persists an event. Ordering by wall-clock timestamp across
	// different emitters is best-effort only.
	Emit(ctx context.Context, event rcmodel.Event) error

	// Scan lazily yields events matching filter, in the order options
	// requests. Each yielded record may fail individually (a decode
	// error from the backend); the iterator continues past a per-record
	// error rather than aborting the whole scan.
	Scan(ctx context.Context, filter Filter, options Options) iter.Seq2[rcmodel.Event, error]
}

type storeBackedStream struct {
	backend Backend
}

// NewStoreBacked builds a Stream that writes straight through to backend
// (typically the primary store's legacy event operations), per spec.md
// §4.2's reference shape.
func NewStoreBacked(backend Backend) Stream {
	return &storeBackedStream{backend: backend}
}

func (s *storeBackedStream) Emit(ctx context.Context, event rcmodel.Event) error {
	return s.backend.AppendEvent(ctx, event)
}

func (s *storeBackedStream) Scan(ctx context.Context, filter Filter, options Options) iter.Seq2[rcmodel.Event, error] {
	return s.backend.ScanEvents(ctx, filter, options)
}
