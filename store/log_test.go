package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caco26i/dcc/updates"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, l.Close()) })
	return l
}

func TestPutGetRoundTrip(t *testing.T) {
	l := openTestLog(t)

	_, ok, err := l.Get(1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, l.Put(1, []byte("block one")))
	bits, ok, err := l.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("block one"), bits)
}

func TestMaxHeight(t *testing.T) {
	l := openTestLog(t)

	_, ok, err := l.MaxHeight()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, l.Put(1, []byte("a")))
	require.NoError(t, l.Put(2, []byte("b")))
	require.NoError(t, l.Put(10, []byte("c")))

	h, ok, err := l.MaxHeight()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, updates.Height(10), h)
}

func TestScanFromOrdering(t *testing.T) {
	l := openTestLog(t)
	for h := updates.Height(1); h <= 5; h++ {
		require.NoError(t, l.Put(h, []byte{byte(h)}))
	}

	it, err := l.ScanFrom(3)
	require.NoError(t, err)
	defer it.Close()

	var got []updates.Height
	for it.Next() {
		got = append(got, it.Height())
		require.Equal(t, []byte{byte(it.Height())}, it.Value())
		it.Advance()
	}
	require.Equal(t, []updates.Height{3, 4, 5}, got)
}

func TestDeleteRange(t *testing.T) {
	l := openTestLog(t)
	for h := updates.Height(1); h <= 5; h++ {
		require.NoError(t, l.Put(h, []byte{byte(h)}))
	}

	require.NoError(t, l.DeleteRange(3, 5))

	for h := updates.Height(1); h <= 2; h++ {
		_, ok, err := l.Get(h)
		require.NoError(t, err)
		require.True(t, ok, "height %d should survive", h)
	}
	for h := updates.Height(3); h <= 5; h++ {
		_, ok, err := l.Get(h)
		require.NoError(t, err)
		require.False(t, ok, "height %d should be deleted", h)
	}

	maxH, ok, err := l.MaxHeight()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, updates.Height(2), maxH)
}

func TestDeleteRangeEmptyIsNoop(t *testing.T) {
	l := openTestLog(t)
	require.NoError(t, l.Put(1, []byte("a")))
	require.NoError(t, l.DeleteRange(5, 1))

	_, ok, err := l.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
}
