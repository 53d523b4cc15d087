package datasets

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	acquired atomic.Int64
	released atomic.Int64
}

func (g *fakeGate) AcquireDataset(ctx context.Context) error {
	g.acquired.Add(1)
	return nil
}

func (g *fakeGate) ReleaseDataset() {
	g.released.Add(1)
}

func newTestManager(gate DatasetGate, clock func() time.Time) *Manager {
	return NewManager(5*time.Minute, time.Minute, gate, clock, zerolog.Nop())
}

func TestManagerOpenGetClose(t *testing.T) {
	dir := fixtureDir(t)
	gate := &fakeGate{}
	m := newTestManager(gate, nil)

	id, b, err := m.Open(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotNil(t, b.Enrolment)
	require.Equal(t, int64(1), gate.acquired.Load())
	require.Equal(t, 1, m.Count())

	h, ok := m.Get(id)
	require.True(t, ok)
	require.Same(t, b, h.Bundle)

	require.NoError(t, m.CloseHandle(context.Background(), id))
	require.Equal(t, int64(1), gate.released.Load())
	require.Equal(t, 0, m.Count())

	_, ok = m.Get(id)
	require.False(t, ok)
	require.ErrorIs(t, m.CloseHandle(context.Background(), id), ErrHandleNotFound)
}

func TestManagerBundleCacheHit(t *testing.T) {
	dir := fixtureDir(t)
	m := newTestManager(nil, nil)

	id1, b1, err := m.Open(context.Background(), dir)
	require.NoError(t, err)
	id2, b2, err := m.Open(context.Background(), dir)
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	// Unchanged directory contents reuse the parsed bundle.
	require.Same(t, b1, b2)

	writeCSV(t, dir, "enrolment_more.csv", "date,state,total\n09-01-2025,Goa,4\n")
	_, b3, err := m.Open(context.Background(), dir)
	require.NoError(t, err)
	require.NotSame(t, b1, b3)
	require.NotEqual(t, b1.Hash, b3.Hash)
}

func TestManagerTTLEviction(t *testing.T) {
	dir := fixtureDir(t)
	gate := &fakeGate{}

	var now atomic.Int64
	now.Store(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	m := newTestManager(gate, clock)
	id, _, err := m.Open(context.Background(), dir)
	require.NoError(t, err)

	// Within TTL nothing is evicted.
	now.Add(int64(time.Minute))
	m.EvictExpired()
	require.Equal(t, 1, m.Count())

	// Access refreshes the idle deadline.
	_, ok := m.Get(id)
	require.True(t, ok)
	now.Add(int64(4 * time.Minute))
	m.EvictExpired()
	require.Equal(t, 1, m.Count())

	now.Add(int64(10 * time.Minute))
	m.EvictExpired()
	require.Equal(t, 0, m.Count())
	require.Equal(t, int64(1), gate.released.Load())
}

func TestManagerWithRead(t *testing.T) {
	dir := fixtureDir(t)
	m := newTestManager(nil, nil)
	id, _, err := m.Open(context.Background(), dir)
	require.NoError(t, err)

	var rows int
	require.NoError(t, m.WithRead(id, func(b *Bundle) error {
		rows = b.Enrolment.NumRows()
		return nil
	}))
	require.Equal(t, 2, rows)

	require.ErrorIs(t, m.WithRead("missing", func(*Bundle) error { return nil }), ErrHandleNotFound)
}

func TestManagerOpenBadDirReleasesGate(t *testing.T) {
	gate := &fakeGate{}
	m := newTestManager(gate, nil)
	_, _, err := m.Open(context.Background(), t.TempDir()+"/absent")
	require.ErrorIs(t, err, ErrNoDataDir)
	require.Equal(t, int64(1), gate.acquired.Load())
	require.Equal(t, int64(1), gate.released.Load())
}

func TestManagerClose(t *testing.T) {
	dir := fixtureDir(t)
	gate := &fakeGate{}
	m := newTestManager(gate, nil)
	m.Start()

	_, _, err := m.Open(context.Background(), dir)
	require.NoError(t, err)
	_, _, err = m.Open(context.Background(), dir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
	require.Equal(t, 0, m.Count())
	require.Equal(t, gate.acquired.Load(), gate.released.Load())
}
