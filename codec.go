package bptreekv

// Codec is the compression capability the engine depends on without owning
// (spec §4.2). dst is a scratch buffer the implementation may reuse;
// the returned slice is the one the caller must use, since some codecs
// (e.g. zstd's frame API) cannot always write in place.
type Codec interface {
	// MaxCompressedSize returns an upper bound on the compressed size of
	// an n-byte input, used to size scratch buffers before Compress.
	MaxCompressedSize(n int) int
	// Compress compresses src into (a view of) dst and returns the result.
	Compress(dst, src []byte) ([]byte, error)
	// UncompressedSize returns the decoded length of a compressed blob,
	// used to size scratch buffers before Decompress.
	UncompressedSize(src []byte) (int, error)
	// Decompress decompresses src into (a view of) dst and returns the result.
	Decompress(dst, src []byte) ([]byte, error)
}
