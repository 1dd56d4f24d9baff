package bptreekv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyan233/bptreekv/codec/none"
	"github.com/nyan233/bptreekv/codec/snappy"
)

func newTestWriter(t *testing.T) *writer {
	path := filepath.Join(t.TempDir(), "writer.db")
	w, err := createWriter(path, none.New(), true)
	require.NoError(t, err)
	t.Cleanup(func() { w.close() })
	return w
}

func TestWriterWriteReadRoundTrip(t *testing.T) {
	w := newTestWriter(t)

	offset, size, err := w.write(modeUncompressed, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, uint64(11), size)

	got, err := w.read(modeUncompressed, offset, size)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
}

func TestWriterPadsToAlignment(t *testing.T) {
	w := newTestWriter(t)

	offset, _, err := w.write(modeUncompressed, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset%paddingUnit)

	offset, _, err = w.write(modeUncompressed, []byte("de"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset%paddingUnit)
}

func TestWriterFindScansBackward(t *testing.T) {
	w := newTestWriter(t)

	marker := []byte("MARK0000")
	require.Equal(t, 8, len(marker))
	_, _, err := w.write(modeUncompressed, []byte("noise"))
	require.NoError(t, err)
	_, _, err = w.write(modeUncompressed, marker)
	require.NoError(t, err)
	_, _, err = w.write(modeUncompressed, []byte("more noise after"))
	require.NoError(t, err)

	found, ok, err := w.find(uint64(len(marker)), func(data []byte) (bool, error) {
		return string(data) == string(marker), nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, marker, found)
}

func TestWriterFindReturnsFalseWhenAbsent(t *testing.T) {
	w := newTestWriter(t)
	_, _, err := w.write(modeUncompressed, []byte("some bytes"))
	require.NoError(t, err)

	_, ok, err := w.find(8, func(data []byte) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriterCompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compressed.db")
	w, err := createWriter(path, snappy.New(), true)
	require.NoError(t, err)
	defer w.close()

	payload := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaabbbbbbbbbbbbbbbbbbbbbbb")
	offset, storedSize, err := w.write(modeCompressed, payload)
	require.NoError(t, err)

	got, err := w.read(modeCompressed, offset, storedSize)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}
