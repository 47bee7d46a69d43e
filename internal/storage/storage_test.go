package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsebar/internal/module"
	"pulsebar/internal/state"
	logx "pulsebar/pkg/logx"
)

func sample() Snapshot {
	return Snapshot{
		"date":    {StartTime: 5 * time.Second, Data: module.Fields{"": "Mon 12:00"}},
		"battery": {IsProcessing: true, StartTime: 7 * time.Second, Data: module.Fields{"capacity": "81", "status": "Charging"}},
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", "Disabled"} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		assert.Nil(t, st)
		assert.ErrorIs(t, err, ErrDisabled)
	}
	_, err := Open(Config{Driver: "bolt"}, logx.Nop())
	assert.Error(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, st.Save(ctx, sample()))
	got, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStoreCorruptYieldsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)

	_, err = st.Load(context.Background())
	assert.Error(t, err)
	assert.Empty(t, LoadOrEmpty(context.Background(), st, logx.Nop()))
	assert.Empty(t, LoadOrEmpty(context.Background(), nil, logx.Nop()))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Save(ctx, sample()))

	next := sample()
	next["date"] = state.RefreshState{StartTime: 9 * time.Second, Data: module.Fields{"": "Mon 12:01"}}
	require.NoError(t, st.Save(ctx, next))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

type memStore struct {
	mu    sync.Mutex
	saves []Snapshot
	err   error
}

func (m *memStore) Load(context.Context) (Snapshot, error) { return Snapshot{}, nil }
func (m *memStore) Close() error                           { return nil }

func (m *memStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, s)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func TestPersisterDecimation(t *testing.T) {
	t.Parallel()
	ms := &memStore{}
	p := NewPersister(ms, 3, 0, logx.Nop())
	ctx := context.Background()

	var written []int
	for i := 0; i < 7; i++ {
		if p.Offer(ctx, Snapshot{}) {
			written = append(written, i)
		}
	}
	assert.Equal(t, []int{0, 3, 6}, written)
	assert.Equal(t, 3, ms.count())
	assert.Equal(t, 3, p.Writes())
}

func TestPersisterBufferSizeOneWritesEveryTick(t *testing.T) {
	t.Parallel()
	ms := &memStore{}
	p := NewPersister(ms, 1, 0, logx.Nop())
	for i := 0; i < 4; i++ {
		assert.True(t, p.Offer(context.Background(), Snapshot{}))
	}
	assert.Equal(t, 4, ms.count())
}

func TestPersisterFailureIsBestEffort(t *testing.T) {
	t.Parallel()
	ms := &memStore{err: errors.New("disk full")}
	p := NewPersister(ms, 1, 0, logx.Nop())
	assert.True(t, p.Offer(context.Background(), sample()))
	assert.Equal(t, 0, p.Writes())
}

func TestPersisterRunFlushesOnCancel(t *testing.T) {
	t.Parallel()
	ms := &memStore{}
	p := NewPersister(ms, 100, 0, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Submit(Snapshot{})
	require.Eventually(t, func() bool { return ms.count() == 1 }, time.Second, 5*time.Millisecond)

	p.Submit(sample())
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.Equal(t, 2, ms.count())
	assert.Equal(t, sample(), ms.saves[1])
}
