package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []api.Notification
}

func (r *recorder) Notify(n api.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []api.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Notification(nil), r.got...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil)
	for i := 0; i < 1000; i++ {
		d.Notify(api.DataReady(i, i+1))
	}
	d.Close()
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not drain")
	}

	got := rec.snapshot()
	require.Len(t, got, 1000)
	for i, n := range got {
		assert.Equal(t, i, n.Handle)
		assert.Equal(t, i+1, n.Length)
	}
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_SlowHostDoesNotBlockProducer(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(api.NotifyFunc(func(api.Notification) { <-release }), nil)

	start := time.Now()
	for i := 0; i < 100; i++ {
		d.Notify(api.Opened(i))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, d.Pending(), 99)

	close(release)
	d.Close()
	<-d.Done()
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil)
	d.Notify(api.Shutdown())
	d.Close()
	d.Notify(api.Opened(1))
	<-d.Done()

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, api.SocketShutdown, got[0].Kind)
}

func TestDispatcher_RecoversFromPanickingNotifier(t *testing.T) {
	rec := &recorder{}
	calls := 0
	d := NewDispatcher(api.NotifyFunc(func(n api.Notification) {
		calls++
		if calls == 1 {
			panic("host exploded")
		}
		rec.Notify(n)
	}), nil)
	d.Notify(api.Opened(0))
	d.Notify(api.Closed(0))
	d.Close()
	<-d.Done()

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, api.SocketClosed, got[0].Kind)
}

func TestChanNotifier(t *testing.T) {
	c := NewChanNotifier(2)
	c.Notify(api.Opened(3))
	n := <-c.C
	assert.Equal(t, "SocketOpened", n.Name())
	assert.Equal(t, "3", n.Payload())
}

func TestDispatcher_AfterDeliverFollowsTarget(t *testing.T) {
	rec := &recorder{}
	var mu sync.Mutex
	var seen []int
	target := api.NotifyFunc(func(n api.Notification) {
		if n.Handle == 1 {
			panic("host failure")
		}
		rec.Notify(n)
	})
	d := NewDispatcher(target, nil, WithAfterDeliver(func(n api.Notification) {
		// The target has already returned for n.
		mu.Lock()
		seen = append(seen, n.Handle)
		mu.Unlock()
	}))
	for i := 0; i < 3; i++ {
		d.Notify(api.Closed(i))
	}
	d.Close()
	<-d.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, seen, "runs after a panicking delivery too")
	assert.Len(t, rec.snapshot(), 2)
}
