// Package zstd adapts github.com/klauspost/compress/zstd to
// bptreekv.Codec, for callers who want a higher compression ratio than
// snappy at the cost of more CPU. Exercises the same Codec boundary as
// codec/snappy with a different backing library (spec §4.2's point: the
// compression codec is an external, swappable collaborator).
package zstd

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Codec implements bptreekv.Codec using zstd frames. An encoder/decoder
// pair is created once and reused; both are safe for concurrent use but
// this wrapper still serializes access since callers share one instance
// across an engine's lifetime.
type Codec struct {
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a zstd Codec with default encoder/decoder settings.
func New() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// MaxCompressedSize has no tight worst-case bound for zstd's frame format
// on arbitrary input, unlike snappy's block format; this is a generous
// bound, not a hard guarantee, matching klauspost's own recommendation for
// allocation sizing (reslicing happens transparently in Compress/Decompress
// if the bound is exceeded).
func (c *Codec) MaxCompressedSize(n int) int {
	return n + n/2 + 256
}

func (c *Codec) Compress(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.EncodeAll(src, dst[:0]), nil
}

// UncompressedSize is a sizing hint only: zstd frames self-describe their
// decoded length, and DecodeAll grows its destination buffer as needed
// regardless of what's passed in here.
func (c *Codec) UncompressedSize(src []byte) (int, error) {
	return len(src) * 4, nil
}

func (c *Codec) Decompress(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dec.DecodeAll(src, dst[:0])
}
