package provider

import "context"

type observerKey struct{}

// WithStateObserver returns a context that carries fn. Adapters read it
// with StateObserver and pass it to Await, so callers above the
// generation.Generator interface can follow a job's lifecycle.
func WithStateObserver(ctx context.Context, fn StateFunc) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

// StateObserver returns the StateFunc stored in ctx, or nil.
func StateObserver(ctx context.Context) StateFunc {
	fn, _ := ctx.Value(observerKey{}).(StateFunc)
	return fn
}
