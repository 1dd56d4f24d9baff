// Package none is a zero-dependency passthrough codec, grounded on the
// original bp library's kNotCompressed mode (original_source/src/writer.c).
// Useful for tests and for callers who don't want compression overhead.
package none

// Codec implements bptreekv.Codec by copying bytes unchanged.
type Codec struct{}

// New returns a passthrough Codec.
func New() Codec { return Codec{} }

func (Codec) MaxCompressedSize(n int) int { return n }

func (Codec) Compress(dst, src []byte) ([]byte, error) {
	n := copy(dst, src)
	return dst[:n], nil
}

func (Codec) UncompressedSize(src []byte) (int, error) { return len(src), nil }

func (Codec) Decompress(dst, src []byte) ([]byte, error) {
	n := copy(dst, src)
	return dst[:n], nil
}
