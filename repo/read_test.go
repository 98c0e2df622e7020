package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caco26i/dcc/updates"
)

func TestUpdateForHeightUnknownHeight(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	_, ok, err := r.UpdateForHeight(5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpdatesRangeSpansPersistedAndLiquid(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))
	require.NoError(t, r.AppendBlock(blockAt(2, 2)))
	require.NoError(t, r.AppendBlock(blockAt(3, 3)))

	got, err := r.UpdatesRange(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, updates.Height(1), got[0].Height)
	require.Equal(t, updates.Height(3), got[2].Height)
}

func TestUpdatesRangeMissingHeightErrors(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	_, err := r.UpdatesRange(context.Background(), 1, 5)
	require.Error(t, err)
}

func TestUpdatesRangeEmptyWhenToBeforeFrom(t *testing.T) {
	r := newTestRepo(t, Options{})
	got, err := r.UpdatesRange(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpdatesRangeRespectsCancellation(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.UpdatesRange(ctx, 1, 1)
	require.ErrorIs(t, err, context.Canceled)
}
