package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/updates"
)

func drainN(t *testing.T, sub *Subscription, n int, timeout time.Duration) []updates.Update {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out := make([]updates.Update, 0, n)
	for i := 0; i < n; i++ {
		u, err := sub.Next(ctx)
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestStreamCatchesUpThenTails(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))
	require.NoError(t, r.AppendBlock(blockAt(2, 2)))
	require.NoError(t, r.AppendBlock(blockAt(3, 3)))

	sub, err := r.Stream(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Cancel()

	history := drainN(t, sub, 3, time.Second)
	require.Equal(t, updates.Height(1), history[0].(updates.BlockAppended).Height)
	require.Equal(t, updates.Height(2), history[1].(updates.BlockAppended).Height)
	require.Equal(t, updates.Height(3), history[2].(updates.BlockAppended).Height)

	require.NoError(t, r.AppendBlock(blockAt(4, 4)))
	live := drainN(t, sub, 1, time.Second)
	require.Equal(t, updates.Height(4), live[0].(updates.BlockAppended).Height)
}

func TestStreamAttachedBeforeFirstAppend(t *testing.T) {
	r := newTestRepo(t, Options{})

	sub, err := r.Stream(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Cancel()

	done := make(chan updates.Update, 1)
	go func() {
		u, nerr := sub.Next(context.Background())
		require.NoError(t, nerr)
		done <- u
	}()

	select {
	case <-done:
		t.Fatal("Next returned before anything was appended")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	select {
	case u := <-done:
		require.Equal(t, updates.Height(1), u.(updates.BlockAppended).Height)
	case <-time.After(time.Second):
		t.Fatal("Next did not observe the append")
	}
}

func TestStreamRejectsHeightBeyondTip(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	_, err := r.Stream(context.Background(), 5)
	require.True(t, errors.Is(err, errs.ErrOutOfRange))
}

func TestStreamClampsFromBelowOne(t *testing.T) {
	r := newTestRepo(t, Options{})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))

	sub, err := r.Stream(context.Background(), 0)
	require.NoError(t, err)
	defer sub.Cancel()

	got := drainN(t, sub, 1, time.Second)
	require.Equal(t, updates.Height(1), got[0].(updates.BlockAppended).Height)
}

func TestStreamCancelEndsSubscription(t *testing.T) {
	r := newTestRepo(t, Options{})

	sub, err := r.Stream(context.Background(), 1)
	require.NoError(t, err)

	sub.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, nerr := sub.Next(ctx)
	require.True(t, errors.Is(nerr, context.Canceled))
}

func TestStreamSeversSlowConsumer(t *testing.T) {
	r := newTestRepo(t, Options{BackPressureBufferSize: 1})
	require.NoError(t, r.AppendBlock(blockAt(1, 1)))
	require.NoError(t, r.AppendBlock(blockAt(2, 2)))
	require.NoError(t, r.AppendBlock(blockAt(3, 3)))
	require.NoError(t, r.AppendBlock(blockAt(4, 4)))

	sub, err := r.Stream(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Cancel()

	// Give the subscription goroutine time to run its non-blocking Phase
	// L sends to completion before we drain anything.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, nerr := sub.Next(ctx)
	require.NoError(t, nerr)

	_, nerr = sub.Next(ctx)
	require.True(t, errors.Is(nerr, errs.ErrSlowConsumer))
}

func TestStreamMultiBatchHistoricalCatchUp(t *testing.T) {
	r := newTestRepo(t, Options{BatchSize: 1})
	for h := updates.Height(1); h <= 4; h++ {
		require.NoError(t, r.AppendBlock(blockAt(h, byte(h))))
	}

	sub, err := r.Stream(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Cancel()

	got := drainN(t, sub, 4, time.Second)
	require.Len(t, got, 4)
	require.Equal(t, updates.Height(4), got[3].(updates.BlockAppended).Height)
}
