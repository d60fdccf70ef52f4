package bridge

import (
	"context"
	"iter"
)

// OnExhausted decorates seq so that onDone runs once, after the last element
// was yielded and only when the consumer drained the sequence. Early stops,
// upstream errors and cancellation all skip onDone. An onDone error is yielded
// as the final element.
func OnExhausted[T any](ctx context.Context, seq iter.Seq2[T, error], onDone func(context.Context) error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for v, err := range seq {
			if !yield(v, err) {
				return
			}
			if err != nil {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(zero, err)
			return
		}
		if err := onDone(ctx); err != nil {
			yield(zero, err)
		}
	}
}
