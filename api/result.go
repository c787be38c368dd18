// Package api
// Author: momentics@gmail.com
//
// Result shapes returned across the host call surface.

package api

// Result is the outcome of bind or listen as presented to the host bridge.
// LocalPort is set only by a successful bind.
type Result struct {
	Success   bool
	LocalPort int
	Error     string
}

// ResultOf converts a Go error into the host result shape.
func ResultOf(err error) Result {
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}
