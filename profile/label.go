package profile

import (
	"context"
	"runtime/pprof"
	"sync"
	"sync/atomic"
)

// Label keys attached to the goroutine executing a frame or a pass.
const (
	LabelGraph = "fxc_graph"
	LabelPass  = "fxc_pass"
	LabelKind  = "fxc_kind"
)

var labeling atomic.Int32

// EnableLabels attaches frame and pass labels to profiled goroutines until
// the returned func is called. Calls nest.
func EnableLabels() (disable func()) {
	labeling.Add(1)

	return sync.OnceFunc(func() { labeling.Add(-1) })
}

// Labeling reports whether frame and pass labels are attached.
func Labeling() bool { return labeling.Load() > 0 }

// Frame calls fn with ctx labeled by the running graph.
func Frame(ctx context.Context, graph string, fn func(context.Context) error) error {
	return do(ctx, fn, LabelGraph, graph)
}

// Pass calls fn with ctx labeled by a pass and its kind.
func Pass(ctx context.Context, pass, kind string, fn func(context.Context) error) error {
	return do(ctx, fn, LabelPass, pass, LabelKind, kind)
}

func do(ctx context.Context, fn func(context.Context) error, kv ...string) error {
	if !Labeling() {
		return fn(ctx)
	}

	var err error

	pprof.Do(ctx, pprof.Labels(kv...), func(ctx context.Context) {
		err = fn(ctx)
	})

	return err
}
