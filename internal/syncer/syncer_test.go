package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likhith0410/expensegw/internal/events"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/queue"
)

type fakeReplayer struct {
	calls []string
	fail  map[string]error
}

func (f *fakeReplayer) Replay(_ context.Context, method, path string, _ []byte, _ string) error {
	f.calls = append(f.calls, path)
	if err, ok := f.fail[path]; ok {
		return err
	}
	return nil
}

func newTestEngine(t *testing.T, api Replayer) (*Engine, *queue.Store, *events.Bus) {
	t.Helper()
	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	bus := events.NewBus(8)
	e := NewEngine(q, api, bus, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	return e, q, bus
}

func enqueueInOrder(t *testing.T, q *queue.Store, paths ...string) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Minute)
	for i, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), &queue.Mutation{
			Method:    "POST",
			Path:      p,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestDrainReplaysInEnqueueOrder(t *testing.T) {
	api := &fakeReplayer{}
	e, q, _ := newTestEngine(t, api)
	enqueueInOrder(t, q, "/a", "/b", "/c")

	res, err := e.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b", "/c"}, api.calls)
	assert.Equal(t, Result{Attempted: 3, Synced: 3}, res)

	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainPartialFailureKeepsFailedRecord(t *testing.T) {
	api := &fakeReplayer{fail: map[string]error{"/b": errors.New("boom")}}
	e, q, _ := newTestEngine(t, api)
	enqueueInOrder(t, q, "/a", "/b", "/c")

	res, err := e.Drain(context.Background())
	require.NoError(t, err)

	// B's failure must not block C.
	assert.Equal(t, []string{"/a", "/b", "/c"}, api.calls)
	assert.Equal(t, Result{Attempted: 3, Synced: 2, Failed: 1}, res)

	remaining, err := q.ListUnsynced(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "/b", remaining[0].Path)
}

func TestDrainRetriesFailedRecordOnNextTrigger(t *testing.T) {
	api := &fakeReplayer{fail: map[string]error{"/b": errors.New("boom")}}
	e, q, _ := newTestEngine(t, api)
	enqueueInOrder(t, q, "/a", "/b")

	_, err := e.Drain(context.Background())
	require.NoError(t, err)

	// Next trigger re-attempts the leftover record; never silently dropped.
	api.fail = nil
	res, err := e.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Attempted: 1, Synced: 1}, res)

	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainEmptyQueueIsQuiet(t *testing.T) {
	api := &fakeReplayer{}
	e, _, bus := newTestEngine(t, api)

	res, err := e.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, api.calls)
	assert.Empty(t, bus.Recent())
}

func TestDrainPublishesSyncCompleted(t *testing.T) {
	api := &fakeReplayer{}
	e, q, bus := newTestEngine(t, api)
	enqueueInOrder(t, q, "/a")

	_, err := e.Drain(context.Background())
	require.NoError(t, err)

	recent := bus.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, events.EventSyncCompleted, recent[0].Type)
	assert.Equal(t, 1, recent[0].Data["synced"])
}
