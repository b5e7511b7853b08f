package pipeline

import (
	"log/slog"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/fxc/graph"
	"github.com/ardnew/fxc/lang"
)

// condition is a compiled skipIf, runIf or repeat expression. A nil
// condition is absent.
type condition struct {
	src     string
	program *vm.Program
}

func compileCondition(pass, field, src string) (*condition, error) {
	if src == "" {
		return nil, nil
	}

	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, ErrCondition.Wrap(err).With(
			slog.String("pass", pass),
			slog.String("field", field),
			slog.String("source", src),
		)
	}

	return &condition{src: src, program: program}, nil
}

func (c *condition) eval(env map[string]any) (any, error) {
	out, err := vm.Run(c.program, env)
	if err != nil {
		return nil, ErrCondition.Wrap(err).With(slog.String("source", c.src))
	}

	return out, nil
}

func (c *condition) truthy(env map[string]any) (bool, error) {
	out, err := c.eval(env)
	if err != nil {
		return false, err
	}

	return lang.Truthy(out), nil
}

func (c *condition) count(env map[string]any) (int, error) {
	out, err := c.eval(env)
	if err != nil {
		return 0, err
	}

	f, _ := lang.Float(out)
	if f < 0 || math.IsNaN(f) {
		return 0, nil
	}

	return int(math.Round(f)), nil
}

// step is a loaded pass with its conditions compiled.
type step struct {
	graph.Pass

	skip   *condition
	run    *condition
	repeat *condition
}

func compileStep(p graph.Pass) (step, error) {
	s := step{Pass: p}

	var err error

	if s.skip, err = compileCondition(p.ID, "skipIf", p.SkipIf); err != nil {
		return s, err
	}

	if s.run, err = compileCondition(p.ID, "runIf", p.RunIf); err != nil {
		return s, err
	}

	if s.repeat, err = compileCondition(p.ID, "repeat", p.PassRepeat); err != nil {
		return s, err
	}

	return s, nil
}

// times evaluates whether and how often the pass runs this frame.
func (s step) times(env map[string]any) (int, error) {
	if s.skip != nil {
		skip, err := s.skip.truthy(env)
		if err != nil || skip {
			return 0, err
		}
	}

	if s.run != nil {
		run, err := s.run.truthy(env)
		if err != nil || !run {
			return 0, err
		}
	}

	if s.repeat == nil {
		return 1, nil
	}

	return s.repeat.count(env)
}
