package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// ToMap converts p into plain maps and slices for serialization.
func (p *Planned) ToMap() map[string]any {
	steps := make([]any, 0, len(p.Steps))

	for _, s := range p.Steps {
		args := make(map[string]any, len(s.Args))
		for _, k := range slices.Sorted(maps.Keys(s.Args)) {
			args[k] = s.Args[k].String()
		}

		step := map[string]any{
			"temp": s.Temp,
			"op":   s.Op,
			"args": args,
		}

		if s.From != NoInput {
			step["from"] = s.From
		}

		if s.Out != nil {
			step["out"] = s.Out.Name()
		}

		if !s.Repeat.IsOnce() {
			step["repeat"] = s.Repeat.Count
			if s.Repeat.Dynamic != nil {
				step["repeat_dynamic"] = s.Repeat.Dynamic.String()
			}
		}

		if len(s.Guards) > 0 {
			guards := make([]string, len(s.Guards))
			for i, g := range s.Guards {
				guards[i] = g.String()
			}

			step["guards"] = guards
		}

		steps = append(steps, step)
	}

	diags := make([]any, 0, len(p.Diagnostics))
	for _, d := range p.Diagnostics {
		diags = append(diags, d.String())
	}

	return map[string]any{
		"id":          p.ID,
		"search":      p.Search,
		"steps":       steps,
		"diagnostics": diags,
		"render":      p.RenderSurface().Name(),
	}
}

// FormatJSON writes p as JSON to w.
func (p *Planned) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(p.ToMap(), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(p.ToMap())
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes p as YAML to w. An indent of zero selects flow style.
func (p *Planned) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, p.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}
