// Package profile provides optional runtime profiling for fxc.
//
// # Overview
//
// This package integrates [github.com/pkg/profile] with conditional
// compilation. Profiling must be enabled at build time using the "pprof"
// build tag:
//
//	go build -tags pprof -o fxc .
//
// Without the tag, [Modes] is empty and [Config.Start] returns a no-op.
//
// # Available Profiling Modes
//
//   - allocs:    Memory allocation profiling (all allocations)
//   - block:     Block (synchronization) profiling
//   - clock:     Wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: Goroutine profiling
//   - heap:      Heap memory profiling (live allocations)
//   - mem:       General memory profiling
//   - mutex:     Mutex contention profiling
//   - thread:    Thread creation profiling
//   - trace:     Execution trace profiling
//
// # Using File-Based Profiling
//
//	p := profile.New(
//	    profile.WithMode("cpu"),
//	    profile.WithPath("/tmp/profiles"),
//	).Start()
//	defer p.Stop()
//
// Profile files are written to the given directory with names matching the
// profiling mode (e.g., cpu.pprof, mem.pprof).
//
// # Command-Line Usage
//
//	# Profile a hundred frames of a program
//	fxc --pprof-mode=cpu run -n 100 plasma.fx
//
//	# Heap profile with custom output directory
//	fxc --pprof-mode=heap --pprof-dir=./profiles run -n 100 plasma.fx
//
// The default output directory is "pprof" under the user cache directory
// (e.g. $XDG_CACHE_HOME/fxc/pprof).
//
// # Labels
//
// While a profiler runs, the executor labels each frame with the running
// graph ([LabelGraph]) and each pass with its id and kind ([LabelPass],
// [LabelKind]). Samples can then be split per pass:
//
//	go tool pprof -tagfocus=fxc_pass=node_0_pass_0 ./fxc /tmp/profiles/cpu.pprof
//	go tool pprof -tags ./fxc /tmp/profiles/cpu.pprof
//
// Labels are off unless a profiler was started or [EnableLabels] was
// called.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
