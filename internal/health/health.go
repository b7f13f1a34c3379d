// Package health provides readiness checks for the service's external dependencies.
package health

import (
	"context"
	"sync"
)

// Status values reported per check.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Checker is implemented by anything that can report its own health.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Result is the outcome of running a set of checkers.
type Result struct {
	Healthy bool
	Checks  map[string]string
	Errors  map[string]error
}

// CheckAll runs every checker concurrently and collects their outcomes by name.
// Nil checkers are treated as not configured and report ok.
func CheckAll(ctx context.Context, checkers map[string]Checker) Result {
	res := Result{
		Healthy: true,
		Checks:  make(map[string]string, len(checkers)),
		Errors:  make(map[string]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, c := range checkers {
		if c == nil {
			res.Checks[name] = StatusOK
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.HealthCheck(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Healthy = false
				res.Checks[name] = StatusError
				res.Errors[name] = err
				return
			}
			res.Checks[name] = StatusOK
		}()
	}
	wg.Wait()

	return res
}
