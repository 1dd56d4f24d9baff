package bptreekv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leafWithKeys(keys ...string) *page {
	p := newLeafPage(8)
	for _, k := range keys {
		p.slots = append(p.slots, slot{key: []byte(k)})
	}
	return p
}

func TestPageSearchLeafExactAndMiss(t *testing.T) {
	p := leafWithKeys("b", "d", "f")

	r := p.search(defaultComparator, []byte("d"))
	require.True(t, r.exact)
	require.Equal(t, 1, r.index)

	r = p.search(defaultComparator, []byte("c"))
	require.False(t, r.exact)
	require.Equal(t, 0, r.index)

	r = p.search(defaultComparator, []byte("a"))
	require.False(t, r.exact)
	require.Equal(t, -1, r.index)

	r = p.search(defaultComparator, []byte("z"))
	require.False(t, r.exact)
	require.Equal(t, 2, r.index)
}

func TestPageSearchInternalTieBreakDescendsRight(t *testing.T) {
	p := &page{kind: internalPage, fanout: 8}
	p.slots = []slot{
		{key: []byte("")},
		{key: []byte("b")},
		{key: []byte("d")},
		{key: []byte("f")},
	}

	r := p.search(defaultComparator, []byte("d"))
	require.True(t, r.exact)
	require.Equal(t, 2, r.index)

	r = p.search(defaultComparator, []byte("c"))
	require.False(t, r.exact)
	require.Equal(t, 1, r.index)

	r = p.search(defaultComparator, []byte(""))
	require.False(t, r.exact)
	require.Equal(t, 0, r.index)
}

func TestPageShiftRightAndLeft(t *testing.T) {
	p := leafWithKeys("a", "c", "e")

	p.insertAt(1, slot{key: []byte("b")})
	require.Equal(t, []string{"a", "b", "c", "e"}, pageKeys(p))

	p.removeIdx(1)
	require.Equal(t, []string{"a", "c", "e"}, pageKeys(p))
}

func TestPageEncodeDecodeRoundTrip(t *testing.T) {
	p := leafWithKeys("alpha", "beta", "gamma")
	for i := range p.slots {
		p.slots[i].offset = uint64(i * 100)
		p.slots[i].config = uint64(i + 1)
	}

	buf := p.encode()
	require.Equal(t, len(buf), len("alpha")+len("beta")+len("gamma")+3*slotHeaderSize)

	decoded, err := decodePage(buf, p.kind, p.fanout)
	require.NoError(t, err)
	require.Equal(t, p.kind, decoded.kind)
	require.Equal(t, len(p.slots), len(decoded.slots))
	for i, s := range p.slots {
		require.Equal(t, s.key, decoded.slots[i].key)
		require.Equal(t, s.offset, decoded.slots[i].offset)
		require.Equal(t, s.config, decoded.slots[i].config)
	}
}

func pageKeys(p *page) []string {
	out := make([]string, len(p.slots))
	for i, s := range p.slots {
		out[i] = string(s.key)
	}
	return out
}
