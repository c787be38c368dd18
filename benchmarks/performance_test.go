//go:build unix

// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-tcp components.

package benchmarks

import (
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/core/buffer"
	"github.com/momentics/hioload-tcp/internal/session"
	"github.com/momentics/hioload-tcp/server"
)

// BenchmarkByteFifoAppendConsume measures a steady-state producer/consumer pair.
func BenchmarkByteFifoAppendConsume(b *testing.B) {
	f := buffer.NewByteFifo()
	data := make([]byte, 512)
	dst := make([]byte, 512)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Append(data)
		f.ConsumeUpTo(dst)
	}
}

// BenchmarkByteFifoParallel measures contention on one FIFO lock.
func BenchmarkByteFifoParallel(b *testing.B) {
	f := buffer.NewByteFifo()
	b.RunParallel(func(pb *testing.PB) {
		data := make([]byte, 64)
		dst := make([]byte, 64)
		for pb.Next() {
			f.Append(data)
			f.ConsumeUpTo(dst)
		}
	})
}

// BenchmarkTableInsertRemove measures handle allocation with reuse.
func BenchmarkTableInsertRemove(b *testing.B) {
	t := session.NewTable(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := t.Insert(i % 1024)
		if err != nil {
			b.Fatal(err)
		}
		c.Destroy()
		c.Reclaim()
		t.Remove(c.Handle())
	}
}

// BenchmarkTableGetParallel measures lock-free lookups from host goroutines.
func BenchmarkTableGetParallel(b *testing.B) {
	t := session.NewTable(256)
	for i := 0; i < 256; i++ {
		if _, err := t.Insert(1000 + i); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		h := 0
		for pb.Next() {
			t.Get(h & 255)
			h++
		}
	})
}

// echoNotifier bounces every DataReady back through the server.
type echoNotifier struct {
	srv *server.Server
	buf []byte
}

func (e *echoNotifier) Notify(n api.Notification) {
	if n.Kind != api.SocketDataReady {
		return
	}
	for {
		got, err := e.srv.Recv(n.Handle, e.buf, 0, len(e.buf))
		if err != nil || got == 0 {
			return
		}
		_, _ = e.srv.Send(n.Handle, e.buf[:got])
	}
}

// BenchmarkEchoRoundTrip measures one request/response over loopback
// through the multiplexer and notification dispatch.
func BenchmarkEchoRoundTrip(b *testing.B) {
	for _, size := range []int{64, 512, 4096} {
		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			e := &echoNotifier{buf: make([]byte, 8192)}
			srv, err := server.NewServer(nil, server.WithNotifier(e), server.WithPollTimeout(50*time.Millisecond))
			if err != nil {
				b.Fatal(err)
			}
			e.srv = srv
			defer srv.Close()
			port, err := srv.Bind(0, "127.0.0.1")
			if err != nil {
				b.Fatal(err)
			}
			if err := srv.Listen(16); err != nil {
				b.Fatal(err)
			}
			c, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				b.Fatal(err)
			}
			defer c.Close()

			msg := make([]byte, size)
			reply := make([]byte, size)
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Write(msg); err != nil {
					b.Fatal(err)
				}
				if _, err := io.ReadFull(c, reply); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
