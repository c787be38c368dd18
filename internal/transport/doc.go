// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw listening-socket lifecycle for hioload-tcp: descriptor creation,
// address reuse, non-blocking mode, bind, listen and accept. All calls go
// straight to the kernel through golang.org/x/sys/unix so the multiplexer can
// poll the very descriptors it owns.

package transport
