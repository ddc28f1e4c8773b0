// Package commandtest provides a command.Runner that records invocations
// instead of running them.
package commandtest

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Recorder records every Run call. OnRun, when set, decides the result of
// a call; otherwise every call succeeds.
type Recorder struct {
	mu    sync.Mutex
	calls [][]string

	OnRun func(argv []string) error
}

// Run records argv and returns OnRun's result.
func (r *Recorder) Run(_ context.Context, argv ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, slices.Clone(argv))
	onRun := r.OnRun
	r.mu.Unlock()

	if onRun != nil {
		return onRun(argv)
	}
	return nil
}

// Calls returns the recorded invocations in order.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = slices.Clone(c)
	}
	return out
}

// Programs returns argv[0] of every recorded invocation.
func (r *Recorder) Programs() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, c[0])
	}
	return out
}

// CallsTo returns the invocations of program.
func (r *Recorder) CallsTo(program string) [][]string {
	var out [][]string
	for _, c := range r.Calls() {
		if c[0] == program {
			out = append(out, c)
		}
	}
	return out
}

// Command joins argv with spaces, for readable assertions.
func Command(argv []string) string {
	return strings.Join(argv, " ")
}
