// Package snappy adapts github.com/klauspost/compress/snappy to
// bptreekv.Codec. This is the engine's default codec: the original bp
// library (original_source/src/writer.c) links against snappy-c for the
// exact same role, so klauspost's pure-Go snappy is the direct analog.
package snappy

import "github.com/klauspost/compress/snappy"

// Codec implements bptreekv.Codec using the snappy block format.
type Codec struct{}

// New returns a snappy Codec.
func New() Codec { return Codec{} }

func (Codec) MaxCompressedSize(n int) int { return snappy.MaxEncodedLen(n) }

func (Codec) Compress(dst, src []byte) ([]byte, error) {
	return snappy.Encode(dst, src), nil
}

func (Codec) UncompressedSize(src []byte) (int, error) {
	return snappy.DecodedLen(src)
}

func (Codec) Decompress(dst, src []byte) ([]byte, error) {
	return snappy.Decode(dst, src)
}
