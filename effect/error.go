package effect

import "github.com/ardnew/fxc/pkg"

var (
	// ErrDecode is returned when a catalog file is not valid YAML.
	ErrDecode = pkg.NewError("invalid catalog file")
	// ErrInvalidDescriptor is returned for a structurally invalid descriptor.
	ErrInvalidDescriptor = pkg.NewError("invalid effect descriptor")
	// ErrInvalidTexture is returned for an unknown texture format or
	// dimension.
	ErrInvalidTexture = pkg.NewError("invalid texture spec")
	// ErrDuplicateEffect is returned when two owners install the same
	// canonical name.
	ErrDuplicateEffect = pkg.NewError("duplicate effect")
)
