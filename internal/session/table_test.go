package session

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/momentics/hioload-tcp/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_InsertPicksLowestFreeSlot(t *testing.T) {
	tbl := NewTable(8)
	for i := 0; i < 4; i++ {
		c, err := tbl.Insert(100 + i)
		require.NoError(t, err)
		assert.Equal(t, i, c.Handle())
	}

	for _, h := range []int{2, 0} {
		c, ok := tbl.Get(h)
		require.True(t, ok)
		require.True(t, c.Destroy())
		_, ok = tbl.Remove(h)
		require.True(t, ok)
	}

	c, err := tbl.Insert(200)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Handle())
	c, err = tbl.Insert(201)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Handle())
	c, err = tbl.Insert(202)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Handle())
}

func TestTable_FullRejects(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Insert(1)
	require.NoError(t, err)
	_, err = tbl.Insert(2)
	require.NoError(t, err)
	_, err = tbl.Insert(3)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_GrowsPastInitialSlots(t *testing.T) {
	tbl := NewTable(100)
	for i := 0; i < 100; i++ {
		c, err := tbl.Insert(i)
		require.NoError(t, err)
		require.Equal(t, i, c.Handle())
	}
	c, ok := tbl.Get(99)
	require.True(t, ok)
	assert.Equal(t, 99, c.Fd())
	_, ok = tbl.Get(100)
	assert.False(t, ok)
	_, ok = tbl.Get(-1)
	assert.False(t, ok)
}

func TestTable_ByFdAndRange(t *testing.T) {
	tbl := NewTable(8)
	for _, fd := range []int{30, 31, 32} {
		_, err := tbl.Insert(fd)
		require.NoError(t, err)
	}
	c, ok := tbl.ByFd(31)
	require.True(t, ok)
	assert.Equal(t, 1, c.Handle())

	c.Destroy()
	tbl.Remove(1)
	_, ok = tbl.ByFd(31)
	assert.False(t, ok)

	var seen []int
	tbl.Range(func(c *Connection) bool {
		seen = append(seen, c.Handle())
		return true
	})
	assert.Equal(t, []int{0, 2}, seen)
}

// No handle is ever live twice, under a random insert/remove workload.
func TestTable_HandlesNeverDuplicated(t *testing.T) {
	rnd := rand.New(rand.NewSource(99))
	tbl := NewTable(64)
	live := map[int]bool{}
	fd := 0
	for step := 0; step < 5000; step++ {
		if rnd.Intn(3) > 0 {
			c, err := tbl.Insert(fd)
			fd++
			if len(live) == 64 {
				require.ErrorIs(t, err, api.ErrResourceExhausted)
				continue
			}
			require.NoError(t, err)
			require.False(t, live[c.Handle()], "handle %d reused while live", c.Handle())
			live[c.Handle()] = true
			continue
		}
		for h := range live {
			c, ok := tbl.Get(h)
			require.True(t, ok)
			c.Destroy()
			tbl.Remove(h)
			delete(live, h)
			break
		}
	}
	assert.Equal(t, len(live), tbl.Len())
}

func TestTable_ConcurrentGetDuringMutation(t *testing.T) {
	tbl := NewTable(512)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for h := 0; h < 512; h++ {
				if c, ok := tbl.Get(h); ok && c.Handle() != h {
					t.Errorf("slot %d holds handle %d", h, c.Handle())
				}
			}
		}
	}()
	for i := 0; i < 512; i++ {
		_, err := tbl.Insert(i)
		require.NoError(t, err)
	}
	for h := 0; h < 512; h += 2 {
		c, _ := tbl.Get(h)
		c.Destroy()
		tbl.Remove(h)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 256, tbl.Len())
}

func TestConnection_SendRecvAfterDestroy(t *testing.T) {
	tbl := NewTable(1)
	c, err := tbl.Insert(5)
	require.NoError(t, err)

	n, err := c.Send([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, c.Outbound().Len())

	c.Inbound().Append([]byte("xyz"))
	dst := make([]byte, 8)
	n, err = c.Recv(dst)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(dst[:n]))

	c.Inbound().Append([]byte("tail"))
	require.True(t, c.Destroy())
	require.False(t, c.Destroy())
	assert.Equal(t, StateClosed, c.State())
	_, err = c.Send([]byte("x"))
	assert.ErrorIs(t, err, api.ErrConnectionClosed)
	assert.Zero(t, c.Outbound().Len())

	n, err = c.Recv(dst)
	require.NoError(t, err, "inbound stays readable until reclaimed")
	assert.Equal(t, "tail", string(dst[:n]))

	c.Reclaim()
	_, err = c.Recv(dst)
	assert.ErrorIs(t, err, api.ErrConnectionClosed)
}

// A send racing Destroy either queues before it or fails; it never reports
// bytes queued on a dead connection.
func TestConnection_SendRacingDestroy(t *testing.T) {
	for round := 0; round < 200; round++ {
		tbl := NewTable(1)
		c, err := tbl.Insert(7)
		require.NoError(t, err)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 50; i++ {
				if _, err := c.Send([]byte("y")); err != nil {
					return
				}
			}
		}()
		c.Destroy()
		<-done
		n, err := c.Send([]byte("late"))
		require.ErrorIs(t, err, api.ErrConnectionClosed)
		require.Zero(t, n)
		require.Zero(t, c.Outbound().Len())
	}
}

func TestTable_DetachKeepsHandleReserved(t *testing.T) {
	tbl := NewTable(4)
	old, err := tbl.Insert(40)
	require.NoError(t, err)
	old.Destroy()
	tbl.Detach(old)
	_, ok := tbl.ByFd(40)
	assert.False(t, ok)

	// The kernel reuses fd 40; the reserved handle is skipped.
	fresh, err := tbl.Insert(40)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Handle())

	old.Reclaim()
	tbl.Remove(old.Handle())
	c, ok := tbl.ByFd(40)
	require.True(t, ok, "removing the old handle keeps the new fd mapping")
	assert.Same(t, fresh, c)
	assert.Equal(t, 1, tbl.Len())
}
