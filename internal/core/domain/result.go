package domain

import "context"

// Outcome is a resolved value or error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Result is either an Immediate outcome or a Deferred one that resolves later
// on a channel. Callers use one code path for both: Ready for the fast path,
// Wait to block.
type Result[T any] struct {
	now   *Outcome[T]
	later <-chan Outcome[T]
}

// Immediate wraps an already available value.
func Immediate[T any](value T, err error) Result[T] {
	return Result[T]{now: &Outcome[T]{Value: value, Err: err}}
}

// Deferred wraps a value that will be delivered on ch.
// The producer must send exactly one outcome or close ch.
func Deferred[T any](ch <-chan Outcome[T]) Result[T] {
	return Result[T]{later: ch}
}

// IsDeferred returns true if the outcome is not yet available synchronously.
func (r Result[T]) IsDeferred() bool {
	return r.now == nil
}

// Ready returns the outcome if it is immediate.
func (r Result[T]) Ready() (Outcome[T], bool) {
	if r.now == nil {
		return Outcome[T]{}, false
	}
	return *r.now, true
}

// Wait blocks until the outcome is available or ctx is done.
// A closed channel resolves to the zero value with no error.
func (r Result[T]) Wait(ctx context.Context) (T, error) {
	if r.now != nil {
		return r.now.Value, r.now.Err
	}
	var zero T
	if r.later == nil {
		return zero, nil
	}
	select {
	case out, ok := <-r.later:
		if !ok {
			return zero, nil
		}
		return out.Value, out.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
