package llm

import (
	"fmt"
	"time"
)

// LoadBackend runs load and waits up to timeout for it to finish. A timeout
// of zero or less waits indefinitely. The native load has no cancellation,
// so on timeout the loading goroutine keeps running and releases the backend
// itself once the load eventually returns.
func LoadBackend(load func() (Backend, error), timeout time.Duration) (Backend, error) {
	type result struct {
		backend Backend
		err     error
	}

	done := make(chan result, 1)
	go func() {
		b, err := load()
		done <- result{backend: b, err: err}
	}()

	if timeout <= 0 {
		r := <-done
		return r.backend, r.err
	}

	select {
	case r := <-done:
		return r.backend, r.err
	case <-time.After(timeout):
		go func() {
			if r := <-done; r.backend != nil {
				r.backend.Close()
			}
		}()
		return nil, fmt.Errorf("backend load timed out after %s", timeout)
	}
}
