package buffer

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteFifo_NewIsEmpty(t *testing.T) {
	f := NewByteFifo()
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, GrowthUnit, f.Cap())
	assert.Equal(t, 0, f.ConsumeUpTo(make([]byte, 16)))
	assert.Equal(t, 0, f.ConsumeUpTo(nil))
}

func TestByteFifo_GrowthIsQuantized(t *testing.T) {
	cases := []struct {
		name    string
		appends []int
		wantCap int
	}{
		{"fits first unit", []int{10, 20, 994}, 1024},
		{"one past unit", []int{1024, 1}, 2048},
		{"large single append", []int{5000}, 5120},
		{"exact multiple", []int{2048}, 2048},
		{"grow from partial", []int{1000, 1000}, 2048},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewByteFifo()
			total := 0
			for _, n := range tc.appends {
				require.Equal(t, n, f.Append(make([]byte, n)))
				total += n
			}
			assert.Equal(t, total, f.Len())
			assert.Equal(t, tc.wantCap, f.Cap())
			assert.Zero(t, f.Cap()%GrowthUnit)
		})
	}
}

func TestByteFifo_ReallocationBound(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		f := NewByteFifo()
		total := 0
		for i := 0; i < 1+rnd.Intn(20); i++ {
			n := rnd.Intn(3000)
			f.Append(make([]byte, n))
			total += n
			require.Zero(t, f.Cap()%GrowthUnit)
			require.LessOrEqual(t, f.Len(), f.Cap())
		}
		maxGrows := (total + GrowthUnit - 1) / GrowthUnit
		require.LessOrEqual(t, f.Grows(), maxGrows, "total=%d", total)
	}
}

func TestByteFifo_CapacityNeverShrinks(t *testing.T) {
	f := NewByteFifo()
	f.Append(make([]byte, 4000))
	before := f.Cap()
	f.ConsumeUpTo(make([]byte, 4000))
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, before, f.Cap())
}

func TestByteFifo_OrderPreservedAcrossChunks(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		f := NewByteFifo()
		var want, got bytes.Buffer
		for step := 0; step < 50; step++ {
			if rnd.Intn(2) == 0 {
				chunk := make([]byte, rnd.Intn(700))
				rnd.Read(chunk)
				f.Append(chunk)
				want.Write(chunk)
				continue
			}
			dst := make([]byte, rnd.Intn(900))
			n := f.ConsumeUpTo(dst)
			require.LessOrEqual(t, n, len(dst))
			got.Write(dst[:n])
		}
		rest := make([]byte, f.Len())
		got.Write(rest[:f.ConsumeUpTo(rest)])
		require.Equal(t, want.Bytes(), got.Bytes())
	}
}

func TestByteFifo_PartialConsumeShiftsRemainder(t *testing.T) {
	f := NewByteFifo()
	f.Append([]byte("hello world"))
	dst := make([]byte, 6)
	require.Equal(t, 6, f.ConsumeUpTo(dst))
	assert.Equal(t, "hello ", string(dst))
	assert.Equal(t, 5, f.Len())

	f.Append([]byte("!"))
	rest := make([]byte, 32)
	n := f.ConsumeUpTo(rest)
	assert.Equal(t, "world!", string(rest[:n]))
}

func TestByteFifo_ReleasedRefusesData(t *testing.T) {
	f := NewByteFifo()
	f.Append([]byte("abc"))
	f.Release()
	assert.True(t, f.Released())
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 0, f.Cap())

	assert.Equal(t, 0, f.Append([]byte("xy")))
	n, err := f.TryAppend([]byte("xy"))
	assert.ErrorIs(t, err, ErrReleased)
	assert.Zero(t, n)
	_, err = f.TryAppend(nil)
	assert.ErrorIs(t, err, ErrReleased)
	assert.Equal(t, 0, f.Cap(), "no storage after release")

	_, err = f.TryConsume(make([]byte, 4))
	assert.ErrorIs(t, err, ErrReleased)
	f.Release()
}

// Appends racing a Release either land before it or are refused; none is
// reported as queued afterwards.
func TestByteFifo_AppendRacingRelease(t *testing.T) {
	for round := 0; round < 200; round++ {
		f := NewByteFifo()
		accepted := make(chan int, 1)
		go func() {
			total := 0
			for i := 0; i < 100; i++ {
				n, err := f.TryAppend([]byte("x"))
				if err != nil {
					break
				}
				total += n
			}
			accepted <- total
		}()
		f.Release()
		<-accepted
		n, err := f.TryAppend([]byte("late"))
		require.ErrorIs(t, err, ErrReleased)
		require.Zero(t, n)
		require.Zero(t, f.Len())
	}
}

func TestByteFifo_ConcurrentAppendConsume(t *testing.T) {
	f := NewByteFifo()
	const total = 200_000
	var wg sync.WaitGroup
	wg.Add(2)

	go func(seed int64) {
		defer wg.Done()
		rnd := rand.New(rand.NewSource(seed))
		next := byte(0)
		for sent := 0; sent < total; {
			n := 1 + rnd.Intn(300)
			if sent+n > total {
				n = total - sent
			}
			chunk := make([]byte, n)
			for i := range chunk {
				chunk[i] = next
				next++
			}
			f.Append(chunk)
			sent += n
		}
	}(time.Now().UnixNano())

	var mismatch int
	go func(seed int64) {
		defer wg.Done()
		rnd := rand.New(rand.NewSource(seed))
		expect := byte(0)
		for got := 0; got < total; {
			dst := make([]byte, 1+rnd.Intn(500))
			n := f.ConsumeUpTo(dst)
			for _, b := range dst[:n] {
				if b != expect {
					mismatch++
				}
				expect++
			}
			got += n
			if l, c := f.Len(), f.Cap(); l < 0 || l > c {
				mismatch++
			}
		}
	}(time.Now().UnixNano() + 1)

	wg.Wait()
	require.Zero(t, mismatch)
	assert.Equal(t, 0, f.Len())
}
