package cmd

import "github.com/ardnew/fxc/pkg"

var (
	ErrReadSource   = pkg.NewError("read program source")
	ErrCatalog      = pkg.NewError("install effect catalog")
	ErrCheckFailed  = pkg.NewError("program has errors")
	ErrFormat       = pkg.NewError("unsupported output format")
	ErrYAMLMarshal  = pkg.NewError("marshal YAML")
	ErrWriteConfig  = pkg.NewError("write configuration file")
	ErrFileExists   = pkg.NewError("file exists (use --force to overwrite)")
	ErrFrameFailed  = pkg.NewError("frame failed")
	ErrNoConfigPath = pkg.NewError("configuration path undefined")
)
