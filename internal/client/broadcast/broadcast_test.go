package broadcast

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/client/storage"
	"github.com/dmitrijs2005/storeadmin/internal/common"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNav struct {
	mu     sync.Mutex
	pushed []router.Location
}

func (n *recordingNav) Push(ctx context.Context, to router.Location) (router.Location, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, to)
	return to, nil
}

func (n *recordingNav) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pushed)
}

// openProcess opens its own handle on path, as a second process would.
func openProcess(t *testing.T, path string) *storage.Slots {
	t.Helper()
	db, err := storage.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.New(db, logging.Nop())
}

func TestAnnounce_WritesOriginTaggedValue(t *testing.T) {
	slots := openProcess(t, filepath.Join(t.TempDir(), "store.db"))
	ch := NewChannel(slots)
	ch.now = func() time.Time { return time.UnixMilli(1234) }

	require.NoError(t, ch.Announce(context.Background()))

	raw, ok := slots.ReadRaw(context.Background(), common.SlotLogoutSignal)
	require.True(t, ok)
	assert.Equal(t, "1234:"+ch.Origin(), string(raw))
	assert.Equal(t, ch.Origin(), originOf(string(raw)))
}

func TestCheck_ReactsOnlyToOtherOrigins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	a := NewChannel(openProcess(t, path))
	b := NewChannel(openProcess(t, path))
	ctx := context.Background()

	var logouts int
	nav := &recordingNav{}
	w := NewWatcher(b, path, time.Hour, nav, func(ctx context.Context) { logouts++ }, logging.Nop())
	w.Prime(ctx)

	assert.False(t, w.Check(ctx), "nothing changed")

	require.NoError(t, b.Announce(ctx))
	assert.False(t, w.Check(ctx), "own write")
	assert.Zero(t, logouts)

	require.NoError(t, a.Announce(ctx))
	assert.True(t, w.Check(ctx))
	assert.False(t, w.Check(ctx), "same value seen twice")

	assert.Equal(t, 1, logouts)
	require.Len(t, nav.pushed, 1)
	assert.Equal(t, router.ExpiredLogin(), nav.pushed[0])
}

func TestPrime_IgnoresEarlierLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	a := NewChannel(openProcess(t, path))
	b := NewChannel(openProcess(t, path))
	ctx := context.Background()

	require.NoError(t, a.Announce(ctx))

	nav := &recordingNav{}
	w := NewWatcher(b, path, time.Hour, nav, nil, logging.Nop())
	w.Prime(ctx)

	assert.False(t, w.Check(ctx))
	assert.Zero(t, nav.count())
}

func TestRun_DeliversLogoutFromAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	a := NewChannel(openProcess(t, path))
	b := NewChannel(openProcess(t, path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logouts atomic.Int32
	nav := &recordingNav{}
	w := NewWatcher(b, path, 50*time.Millisecond, nav, func(ctx context.Context) { logouts.Add(1) }, logging.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// let Run prime before the write
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, a.Announce(ctx))

	require.Eventually(t, func() bool { return logouts.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return nav.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_DetachedReturnsImmediately(t *testing.T) {
	ch := NewChannel(storage.Detached(logging.Nop()))
	w := NewWatcher(ch, "", 0, nil, nil, logging.Nop())
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 2*time.Second, w.interval)
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, "abc", originOf("1:abc"))
	assert.Empty(t, originOf("garbage"))
}
