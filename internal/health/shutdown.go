package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Entry points call SetReady(false) when a
// shutdown begins so load balancers drain the instance before the listener
// closes.
func SetReady(v bool) {
	ready.Store(v)
}

// Ready reports whether the process accepts traffic.
func Ready() bool {
	return ready.Load()
}
