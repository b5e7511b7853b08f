package registry

import "github.com/ardnew/fxc/pkg"

// Sentinel errors.
var (
	ErrDuplicateExport = pkg.NewError("export already registered by another owner")
	ErrInvalidExport   = pkg.NewError("invalid export record")
	ErrInvalidEnum     = pkg.NewError("invalid enum value")
	ErrInvalidOp       = pkg.NewError("invalid operation spec")
)
