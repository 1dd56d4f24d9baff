package bptreekv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorEmptyTree(t *testing.T) {
	tree, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer tree.Close()

	cur, err := tree.Range(nil, nil)
	require.NoError(t, err)
	_, _, ok, err := cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCursorRangeWithinBounds(t *testing.T) {
	tree, err := Open(tempDBPath(t), WithFanout(4))
	require.NoError(t, err)
	defer tree.Close()

	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		require.NoError(t, tree.Set([]byte(k), []byte(k+k)))
	}

	cur, err := tree.Range([]byte("b"), []byte("e"))
	require.NoError(t, err)
	var keys []string
	for {
		k, v, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Equal(t, string(k)+string(k), string(v))
		keys = append(keys, string(k))
	}
	require.Equal(t, []string{"b", "c", "d", "e"}, keys)
}

func TestCursorFullRangeAfterManyInserts(t *testing.T) {
	tree, err := Open(tempDBPath(t), WithFanout(8))
	require.NoError(t, err)
	defer tree.Close()

	const n = 300
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Set([]byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprintf("%d", i))))
	}

	cur, err := tree.Range(nil, nil)
	require.NoError(t, err)
	prev := ""
	count := 0
	for {
		k, _, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if count > 0 {
			require.Less(t, prev, string(k))
		}
		prev = string(k)
		count++
	}
	require.Equal(t, n, count)
}
