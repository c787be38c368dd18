// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

// MaxCPUs bounds the logical CPU ids SetAffinity accepts. It matches the
// 1024-bit mask of the kernel's cpu_set_t.
const MaxCPUs = 1024

// SetAffinity pins the calling OS thread to a given logical CPU on supported
// platforms. The caller must hold runtime.LockOSThread for the pin to stick
// to its goroutine. On unsupported platforms it returns api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Allowed lists the logical CPUs the process may run on, in ascending order.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
