// Package lang implements the front end of the effects language: the
// lexer, the recursive-descent parser, the semantic validator that lowers
// a program into a planned chain of steps, and the unparser that turns a
// planned chain back into source.
//
// A program names the namespaces it searches, then chains operations that
// read and write surfaces:
//
//	search basics, filter
//
//	let wobble = () => sin(time) * 0.5 + 0.5
//
//	noise(scale: 3, speed: wobble)
//	  .blur(radius: 2)
//	  .blend(tex: gradient(angle: 45), mode: add)
//	  .out(o0)
//
//	solid(color: #ff8000).out(f0)
//	render(o0)
//
// # Values
//
// Call arguments resolve to a [Value]. Literals evaluate to themselves.
// Closures (() => expr), state fields (time, frame, mouseX, ...) and
// oscillators (sine, tri, saw, square) become [Dynamic] values that are
// evaluated once per frame against a [FrameState]. Closure bodies are
// compiled with expr-lang against a fixed environment of state fields and
// math functions.
//
// # Errors
//
// Lexical and grammatical errors are fatal and reported as *[SyntaxError]
// with a source snippet. Semantic problems never abort: they are recorded
// as [Diagnostic] values and a safe default is substituted.
package lang
