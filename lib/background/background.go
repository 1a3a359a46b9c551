// Package background runs small helpers off the main goroutine.
package background

import (
	"sync"
	"time"
)

// Repeat calls do every interval until the returned cancel func is called.
// cancel is idempotent so callers can defer it and still call it eagerly
// as soon as the slow work it reports on finishes.
func Repeat(do func(), interval time.Duration) (cancel func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				do()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
		})
	}
}
