package engine

import "github.com/ardnew/fxc/pkg"

var (
	ErrExpansion = pkg.NewError("graph expansion failed")
	ErrDiagnosed = pkg.NewError("program has errors")
	ErrNoProgram = pkg.NewError("no program loaded")
	ErrOverride  = pkg.NewError("invalid argument override (want TEMP.PARAM=VALUE)")
)
