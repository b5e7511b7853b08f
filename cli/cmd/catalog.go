package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/effect"
)

// Catalog lists the installed effects.
type Catalog struct {
	Verbose bool `help:"Show effect parameters" short:"v"`

	Filter string `arg:"" help:"Fuzzy filter on canonical effect names" optional:""`
}

// Run executes the catalog command.
func (c *Catalog) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	eng, err := newEngine(ctx, backend.NewRecorder())
	if err != nil {
		return err
	}
	defer eng.Close()

	cat := eng.Catalog()
	out := outputFrom(ctx)

	for _, name := range filterNames(c.Filter, cat.Names()) {
		d, ok := cat.Lookup(name)
		if !ok {
			continue
		}

		describe(out, d, c.Verbose)
	}

	return nil
}

// filterNames returns the names matching pattern, best match first, or
// all names when pattern is empty.
func filterNames(pattern string, names []string) []string {
	if pattern == "" {
		return names
	}

	matches := fuzzy.Find(pattern, names)
	out := make([]string, len(matches))

	for i, m := range matches {
		out[i] = m.Str
	}

	return out
}

func describe(w io.Writer, d *effect.Descriptor, verbose bool) {
	var tags []string

	if d.Starter {
		tags = append(tags, "starter")
	}

	if d.Passthrough {
		tags = append(tags, "passthrough")
	}

	if d.OutputTex3D != "" {
		tags = append(tags, "3d")
	}

	line := nameStyle.Render(d.Canonical())
	if len(tags) > 0 {
		line += " " + infoStyle.Render("["+strings.Join(tags, ",")+"]")
	}

	if d.Description != "" {
		line += "  " + d.Description
	}

	fmt.Fprintln(w, line)

	if !verbose {
		return
	}

	for _, p := range d.Globals {
		fmt.Fprintln(w, "    "+paramText(p))
	}
}

func paramText(p effect.Param) string {
	var sb strings.Builder

	sb.WriteString(p.Name)

	if p.Type != "" {
		sb.WriteString(": ")
		sb.WriteString(p.Type)
	}

	if p.Default != nil {
		fmt.Fprintf(&sb, " = %v", p.Default)
	}

	if p.Min != nil || p.Max != nil {
		sb.WriteString(" [")

		if p.Min != nil {
			fmt.Fprint(&sb, *p.Min)
		}

		sb.WriteString("..")

		if p.Max != nil {
			fmt.Fprint(&sb, *p.Max)
		}

		sb.WriteString("]")
	}

	if p.Enum != "" {
		sb.WriteString(" enum ")
		sb.WriteString(p.Enum)
	}

	return sb.String()
}
