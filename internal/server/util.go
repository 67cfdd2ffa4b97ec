package server

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// FlagThrottle enables the artificial response latency.
const FlagThrottle = "throttle"

// Util holds process-wide debug toggles.
type Util struct {
	mu    sync.RWMutex
	flags map[string]any
}

// NewUtil returns utilities with the throttle flag initialised.
func NewUtil(throttle bool) *Util {
	return &Util{flags: map[string]any{FlagThrottle: throttle}}
}

// Get returns the value of a flag.
func (u *Util) Get(name string) (any, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.flags[name]
	return v, ok
}

// Set stores the value of a flag.
func (u *Util) Set(name string, v any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.flags[name] = v
}

// Throttle reports whether responses should be delayed.
func (u *Util) Throttle() bool {
	v, _ := u.Get(FlagThrottle)
	return Truthy(v)
}

// Truthy reports whether a JSON flag value counts as enabled: false, null,
// 0 and "" are off, everything else is on.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		return true
	}
}

// ThrottleDelay returns a random delay in the [500ms, 1000ms) window.
func ThrottleDelay() time.Duration {
	return 500*time.Millisecond + rand.N(500*time.Millisecond)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
