// Package graph turns a planned chain into concrete passes and assigns
// physical texture slots to them.
//
// [Expand] looks up each step's effect descriptor and emits one [Pass]
// per declared pass, naming textures with virtual identifiers:
//
//	node_<n>_out     a step's 2D output
//	node_<n>_<name>  a step-private texture
//	global_<o>       an output surface or persistent texture
//	feedback_<f>     a feedback surface
//	source_<s>       an external source surface
//
// Uniforms accumulate along each chain in a [PipelineContext]. Explicit
// step arguments always win; a parameter marked inherit keeps an upstream
// value instead of its own default.
//
// [Allocate] computes the liveness interval of every transient texture
// and assigns slots by linear scan, so textures whose intervals overlap
// never share a slot.
package graph
