package snappy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c := New()
	src := []byte("the quick brown fox jumps over the lazy dog the quick brown fox")

	dst := make([]byte, c.MaxCompressedSize(len(src)))
	compressed, err := c.Compress(dst, src)
	require.NoError(t, err)

	n, err := c.UncompressedSize(compressed)
	require.NoError(t, err)
	require.Equal(t, len(src), n)

	decoded, err := c.Decompress(make([]byte, n), compressed)
	require.NoError(t, err)
	require.Equal(t, src, decoded)
}
