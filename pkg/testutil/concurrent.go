package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "legitify/pkg/domain-errors"
)

// ConcurrentResult counts outcomes of racing operations by domain code.
type ConcurrentResult struct {
	Successes     int32
	InvalidStates int32
	Conflicts     int32
	NotFounds     int32
	Errors        int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.InvalidStates + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent starts fn in n goroutines at once and tallies the results.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                            sync.WaitGroup
		start                                         = make(chan struct{})
		successes, invalid, conflicts, missing, other atomic.Int32
	)

	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidState):
				invalid.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				missing.Add(1)
			default:
				other.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		InvalidStates: invalid.Load(),
		Conflicts:     conflicts.Load(),
		NotFounds:     missing.Load(),
		Errors:        other.Load(),
	}
}
