// Package effect models effect descriptors: the declarative data behind
// every operation a program can call.
//
// A [Descriptor] declares its parameters ([Param]), the shader programs it
// needs, the render or compute passes that run them and any private
// textures. Descriptors are grouped by namespace into catalog files
// written in YAML:
//
//	namespace: basics
//	enums:
//	  blend:
//	    mode: {normal: 0, add: 1}
//	effects:
//	  - name: noise
//	    starter: true
//	    globals:
//	      - {name: scale, type: float, default: 1, min: 0, max: 100}
//	    programs:
//	      noise: {wgsl: "..."}
//	    passes:
//	      - program: noise
//	        outputs: {color: outputTex}
//
// [Catalog.Install] registers a file's namespace exports, operation specs
// and enums into a [registry.Registry] so programs referring to them
// compile, and keeps the descriptors for graph expansion.
//
// # Pipeline conventions
//
// Pass inputs and outputs refer to the running chain through reserved
// names: [InputTex], [InputTex3D], [InputGeo], [Feedback], [OutputTex],
// [OutputTex3D] and [OutputGeo]. Any other name refers to a surface
// parameter or a declared texture. Textures whose name begins with
// [GlobalPrefix] persist across frames and are double-buffered.
package effect
