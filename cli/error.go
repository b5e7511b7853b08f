package cli

import "github.com/ardnew/fxc/pkg"

// ErrLogFile is returned when the --log-file destination cannot be opened.
var ErrLogFile = pkg.NewError("open log file")
