//go:build !unix

// File: core/buffer/fifo_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "github.com/momentics/hioload-tcp/api"

// FillFrom is unavailable without unix descriptors.
func (f *ByteFifo) FillFrom(fd int, maxLen int) (int, error) {
	return 0, api.ErrNotSupported
}

// DrainTo is unavailable without unix descriptors.
func (f *ByteFifo) DrainTo(fd int) (int, error) {
	return 0, api.ErrNotSupported
}
