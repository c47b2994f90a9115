// Package testutil holds helpers shared by the consent test suites.
package testutil

import (
	"errors"
	"sync"

	"attrconsent/internal/sentinel"
	dErrors "attrconsent/pkg/domain-errors"
)

// ConcurrentResult counts the outcomes of a RunConcurrent call by consent
// failure category.
type ConcurrentResult struct {
	Successes  int32
	Storage    int32
	NotFound   int32
	Unreadable int32
	Other      int32

	// First holds the first error of the Other category, for test messages.
	First error
}

// Total returns how many calls completed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Storage + r.NotFound + r.Unreadable + r.Other
}

// RunConcurrent calls fn from n goroutines at once and sorts the results.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result ConcurrentResult
	)
	start := make(chan struct{})

	for i := range n {
		wg.Go(func() {
			<-start
			err := fn(i)

			mu.Lock()
			defer mu.Unlock()
			code, _ := dErrors.CodeOf(err)
			switch {
			case err == nil:
				result.Successes++
			case code == dErrors.CodeStorage, errors.Is(err, sentinel.ErrUnavailable):
				result.Storage++
			case code == dErrors.CodeNotFound, errors.Is(err, sentinel.ErrNotFound):
				result.NotFound++
			case code.Protection():
				result.Unreadable++
			default:
				result.Other++
				if result.First == nil {
					result.First = err
				}
			}
		})
	}

	close(start)
	wg.Wait()
	return &result
}
