package bptreekv

import (
	"log/slog"

	"github.com/nyan233/bptreekv/codec/snappy"
	"github.com/nyan233/bptreekv/internal/sys"
)

// Comparator orders two keys the way bytes.Compare does: negative if a<b,
// zero if equal, positive if a>b. Engines default to bytes.Compare but
// callers may supply their own, e.g. for numeric-string keys.
type Comparator func(a, b []byte) int

// defaultMaxKeySize bounds how large a single key may be. The original C
// library has no such cap because a page's byte budget enforces it
// implicitly; this engine caps slot count (fanout) instead of page bytes,
// so nothing would otherwise stop a single pathological key from making
// every page oversized. 32KiB is a generous heuristic, not a format limit.
const defaultMaxKeySize = 32 * 1024

// Options configures an Open call. Use With* functions to build one; the
// zero value is not meant to be constructed directly.
type Options struct {
	pageSize   int
	fanout     int
	codec      Codec
	comparator Comparator
	logger     *slog.Logger
	maxKeySize int
	readOnly   bool
}

// Option mutates an Options during Open, following the functional-options
// idiom.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		pageSize:   sys.PageSize(),
		fanout:     128,
		codec:      snappy.New(),
		comparator: defaultComparator,
		logger:     slog.Default(),
		maxKeySize: defaultMaxKeySize,
	}
}

func defaultComparator(a, b []byte) int {
	return compareBytes(a, b)
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// WithPageSize sets the nominal page size recorded in Options. It does not
// change the fanout, which stays at its default of 128 unless WithFanout is
// given; pages themselves have no fixed byte budget in this engine (see
// WithMaxKeySize).
func WithPageSize(size int) Option {
	return func(o *Options) { o.pageSize = size }
}

// WithFanout sets the maximum number of slots a page may hold before
// pageInsert splits it.
func WithFanout(fanout int) Option {
	return func(o *Options) { o.fanout = fanout }
}

// WithCodec overrides the default snappy codec used to compress page and
// value blobs on disk.
func WithCodec(c Codec) Option {
	return func(o *Options) { o.codec = c }
}

// WithComparator overrides the default byte-lexicographic key ordering.
func WithComparator(cmp Comparator) Option {
	return func(o *Options) { o.comparator = cmp }
}

// WithLogger sets the structured logger used for engine diagnostics
// (a Debug entry on Open and on each Compact). Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithMaxKeySize overrides the maximum accepted key length.
func WithMaxKeySize(n int) Option {
	return func(o *Options) { o.maxKeySize = n }
}

// WithReadOnly opens the store without taking the exclusive file lock and
// rejects mutating calls; intended for inspection tools running alongside
// a live writer on a separate host-level guarantee that nothing else is
// mutating concurrently, since the lock itself is skipped.
func WithReadOnly() Option {
	return func(o *Options) { o.readOnly = true }
}
