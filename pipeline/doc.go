// Package pipeline executes expanded graphs frame by frame.
//
// An [Executor] owns the physical textures of a loaded graph and issues
// every drawing operation through a [Backend]. Output and persistent
// textures are double buffered: passes read the read buffer and write the
// write buffer. A write to an output surface is visible to later passes
// of the same frame, while a feedback surface always reads the previous
// frame and is copied forward once the frame ends.
//
// Loading is atomic. If any program fails to compile or any texture
// cannot be created, the previously loaded graph keeps running.
package pipeline
