package command

import (
	"context"
	"sync"
)

// FakeRunner is an in-memory Runner for tests. Handler decides the outcome of each call;
// a nil Handler succeeds with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	Handler func(spec Spec) (Output, error)
	calls   []Spec
}

func (f *FakeRunner) Run(_ context.Context, spec Spec) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	h := f.Handler
	f.mu.Unlock()
	if h == nil {
		return Output{}, nil
	}
	return h(spec)
}

// Calls returns a copy of the recorded invocations in order.
func (f *FakeRunner) Calls() []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spec(nil), f.calls...)
}
