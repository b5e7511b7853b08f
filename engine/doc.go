// Package engine ties the compiler, the graph expander and the pipeline
// executor together.
//
// An [Engine] holds one running program. [Engine.Recompile] compiles new
// source all the way to backend programs and textures, and swaps it in
// only when every stage succeeds:
//
//	e, err := engine.New(ctx, backend.NewRecorder())
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	if _, err := e.Recompile(ctx, "search basics\nnoise().out(o0)\n"); err != nil {
//		return err
//	}
//
//	return e.Advance(ctx, time.Second/60)
package engine
