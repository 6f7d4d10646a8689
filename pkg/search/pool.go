package search

import (
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pathminer/pkg/errors"
)

// ForEach runs task(i) for i in [0, n) on at most workers goroutines and
// waits for all of them. Tasks that have not started when tok is cancelled
// are skipped. A panic inside a task is re-raised on the calling goroutine
// after every started task has returned, so callers can recover it.
//
// Results are expected to be written to index i of a caller-owned slice,
// which keeps the outcome independent of scheduling order.
func ForEach(tok *Token, workers, n int, task func(i int)) {
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := range n {
		if tok.Cancelled() {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &errors.PanicError{Value: v}
				}
			}()
			if tok.Cancelled() {
				return nil
			}
			task(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if pe, ok := err.(*errors.PanicError); ok {
			panic(pe.Value)
		}
		panic(err)
	}
}
