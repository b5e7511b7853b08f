// Package backend provides [pipeline.Backend] implementations.
//
// [Recorder] keeps textures and programs in memory and records every
// call, which makes pipeline behavior observable without a GPU. [Shader]
// wraps another backend and compiles WGSL programs to SPIR-V with naga,
// so shader errors are reported when a graph is loaded.
package backend
