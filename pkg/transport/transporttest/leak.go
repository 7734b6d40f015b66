package transporttest

import (
	"runtime"
	"testing"
	"time"
)

// LeakDetector compares goroutine counts before and after a test body
type LeakDetector struct {
	t              testing.TB
	initialCount   int
	allowedGrowth  int
	checkInterval  time.Duration
	stabilizeDelay time.Duration
}

// NewLeakDetector creates a detector that tolerates no growth
func NewLeakDetector(t testing.TB) *LeakDetector {
	return &LeakDetector{
		t:              t,
		checkInterval:  50 * time.Millisecond,
		stabilizeDelay: 100 * time.Millisecond,
	}
}

// AllowGrowth sets how many extra goroutines are acceptable
func (d *LeakDetector) AllowGrowth(n int) *LeakDetector {
	d.allowedGrowth = n
	return d
}

// Start records the initial goroutine count
func (d *LeakDetector) Start() {
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
}

// Check fails the test if the goroutine count grew beyond the allowance.
// The lowest of several samples is used, since goroutines may still be
// winding down.
func (d *LeakDetector) Check() {
	d.t.Helper()
	time.Sleep(d.stabilizeDelay)

	final := runtime.NumGoroutine()
	for i := 0; i < 2 && final-d.initialCount > d.allowedGrowth; i++ {
		time.Sleep(d.checkInterval)
		if c := runtime.NumGoroutine(); c < final {
			final = c
		}
	}

	if leaked := final - d.initialCount; leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak: started with %d, ended with %d (allowed growth %d)\n%s",
			d.initialCount, final, d.allowedGrowth, buf[:n])
	}
}
