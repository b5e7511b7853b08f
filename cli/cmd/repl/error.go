package repl

import "github.com/ardnew/fxc/pkg"

// Sentinel errors.
var (
	ErrOutOfBounds   = pkg.NewError("index out of range")
	ErrEditDeclined  = pkg.NewError("decline edit")
	ErrNothingToUndo = pkg.NewError("nothing to undo")
	ErrNoProgram     = pkg.NewError("no program loaded")
)
