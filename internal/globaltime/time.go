// Package globaltime is the single clock for the service. Everything that
// stamps records or filters by time goes through it so tests can freeze time.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu  sync.RWMutex
	now = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return now()
}

func UTC() time.Time {
	return Now().UTC()
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	now = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	now = time.Now
}
