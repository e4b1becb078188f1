package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/sentinel"
)

// ConcurrentResult counts outcomes of RunConcurrent by error class.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent calls fn from n goroutines at once and tallies the results.
// Conflicts and not-founds are recognised both as store sentinels and as
// coded domain errors.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                  sync.WaitGroup
		start                               = make(chan struct{})
		successes, conflicts, missing, errs atomic.Int32
	)
	for i := range n {
		wg.Go(func() {
			<-start
			switch err := fn(i); {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict) || dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound):
				missing.Add(1)
			default:
				errs.Add(1)
			}
		})
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: missing.Load(),
		Errors:    errs.Load(),
	}
}
