package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/fxc/effect"
)

// ToMap converts g and its allocation into plain maps and slices for
// serialization. alloc may be nil.
func (g *Graph) ToMap(alloc *Allocation) map[string]any {
	passes := make([]any, 0, len(g.Passes))

	for _, p := range g.Passes {
		uniforms := make(map[string]any, len(p.Uniforms))
		for _, k := range slices.Sorted(maps.Keys(p.Uniforms)) {
			uniforms[k] = p.Uniforms[k].String()
		}

		m := map[string]any{
			"id":       p.ID,
			"program":  p.Program,
			"kind":     string(p.Kind),
			"effect":   p.EffectKey,
			"step":     p.Step,
			"inputs":   physical(p.Inputs, alloc),
			"outputs":  physical(p.Outputs, alloc),
			"uniforms": uniforms,
		}

		if p.Kind == effect.PassCompute {
			m["workgroup"] = p.Workgroup[:]
		}

		for k, v := range map[string]string{
			"repeat": p.PassRepeat,
			"skipIf": p.SkipIf,
			"runIf":  p.RunIf,
		} {
			if v != "" {
				m[k] = v
			}
		}

		if !p.Repeat.IsOnce() {
			m["stepRepeat"] = p.Repeat.Count
		}

		if len(p.Guards) > 0 {
			guards := make([]string, len(p.Guards))
			for i, d := range p.Guards {
				guards[i] = d.String()
			}

			m["guards"] = guards
		}

		passes = append(passes, m)
	}

	textures := make(map[string]any, len(g.Textures))
	for id, spec := range g.Textures {
		textures[id] = spec.Key()
	}

	errs := make([]any, 0, len(g.Errors))
	for _, e := range g.Errors {
		errs = append(errs, e.Error())
	}

	out := map[string]any{
		"id":       g.ID,
		"render":   g.RenderSurface,
		"passes":   passes,
		"programs": slices.Sorted(maps.Keys(g.Programs)),
		"textures": textures,
		"errors":   errs,
	}

	if alloc != nil {
		slots := make([]any, alloc.Len())
		shared := alloc.Shared()

		for i, spec := range alloc.Specs {
			slots[i] = map[string]any{
				"name":     SlotName(i),
				"spec":     spec.Key(),
				"textures": shared[i],
			}
		}

		out["slots"] = slots
	}

	return out
}

func physical(bindings map[string]string, alloc *Allocation) map[string]any {
	out := make(map[string]any, len(bindings))

	for k, id := range bindings {
		if alloc != nil {
			if name, ok := alloc.Physical(id); ok {
				out[k] = id + "@" + name

				continue
			}
		}

		out[k] = id
	}

	return out
}

// FormatJSON writes g as JSON to w.
func (g *Graph) FormatJSON(_ context.Context, w io.Writer, alloc *Allocation, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(g.ToMap(alloc), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(g.ToMap(alloc))
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes g as YAML to w. An indent of zero selects flow style.
func (g *Graph) FormatYAML(ctx context.Context, w io.Writer, alloc *Allocation, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, g.ToMap(alloc), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}
