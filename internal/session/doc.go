// Package session
// Author: momentics <momentics@gmail.com>
//
// Connection state and the bounded connection table.
// Each Connection maps one accepted descriptor to a stable integer handle
// and owns its inbound and outbound byte FIFOs.
//
// The table is mutated by the multiplexer goroutine only; lookups by handle
// are lock-free and safe from any goroutine.

package session
