package search

import (
	"context"
	"sync/atomic"
)

// Token is a cooperative cancellation flag shared by a solver, its local
// search and its pool tasks. Solvers poll it at loop entry, recursive-call
// entry and pool-task entry, and return their best-known state once it is
// set. A nil *Token is never cancelled.
type Token struct {
	cancelled atomic.Bool
}

// NewToken returns an uncancelled token.
func NewToken() *Token { return &Token{} }

// WithContext returns a token that is cancelled when ctx is done. The
// returned stop function detaches the token from ctx.
func WithContext(ctx context.Context) (*Token, func() bool) {
	t := NewToken()
	stop := context.AfterFunc(ctx, t.Cancel)
	return t, stop
}

// Cancel requests cancellation. It is safe to call repeatedly and from any
// goroutine.
func (t *Token) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether cancellation was requested.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}
