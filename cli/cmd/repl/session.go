package repl

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
)

// defaultHeader starts a program when the REPL is given no source.
const defaultHeader = "search basics, filter"

// defaultStep is the simulated time between frames.
const defaultStep = 16 * time.Millisecond

// session is the program being live-coded: its lines, and the engine
// running the last version that compiled.
type session struct {
	eng   *engine.Engine
	rec   *backend.Recorder
	lines []string
	step  time.Duration
}

func newSession(eng *engine.Engine, rec *backend.Recorder, src string) *session {
	lines := splitProgram(src)
	if len(lines) == 0 {
		lines = []string{defaultHeader}
	}

	return &session{eng: eng, rec: rec, lines: lines, step: defaultStep}
}

// splitProgram returns the non-blank lines of src.
func splitProgram(src string) []string {
	var lines []string

	for line := range strings.SplitSeq(src, "\n") {
		if line = strings.TrimRight(line, " \t\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

func joinProgram(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

// source returns the program text.
func (s *session) source() string { return joinProgram(s.lines) }

// apply makes lines the program. On error the lines and the running
// program are unchanged.
func (s *session) apply(ctx context.Context, lines []string) (*engine.Compiled, error) {
	c, err := s.eng.Recompile(ctx, joinProgram(lines))
	if err != nil {
		return nil, err
	}

	s.lines = lines

	return c, nil
}

// load compiles the current lines.
func (s *session) load(ctx context.Context) (*engine.Compiled, error) {
	return s.apply(ctx, s.lines)
}

// eval appends line to the program.
func (s *session) eval(ctx context.Context, line string) (*engine.Compiled, error) {
	return s.apply(ctx, append(slices.Clone(s.lines), line))
}

// undo drops the last line.
func (s *session) undo(ctx context.Context) (*engine.Compiled, error) {
	if len(s.lines) < 2 {
		return nil, ErrNothingToUndo
	}

	return s.apply(ctx, slices.Clone(s.lines[:len(s.lines)-1]))
}

// replace swaps in a whole new program text.
func (s *session) replace(ctx context.Context, src string) (*engine.Compiled, error) {
	return s.apply(ctx, splitProgram(src))
}

// set regenerates the program with TEMP.PARAM=VALUE overrides applied.
func (s *session) set(ctx context.Context, sets []string) (*engine.Compiled, error) {
	ov, err := engine.ParseOverrides(sets)
	if err != nil {
		return nil, err
	}

	text, err := s.eng.Unparse(ov)
	if err != nil {
		return nil, err
	}

	return s.replace(ctx, text)
}

// run executes n frames of the running program.
func (s *session) run(ctx context.Context, n int) error {
	if s.eng.Current() == nil {
		return ErrNoProgram
	}

	for range n {
		if err := s.eng.Advance(ctx, s.step); err != nil {
			return err
		}
	}

	return nil
}

// search returns the namespace search order of the program.
func (s *session) search() []string {
	if c := s.eng.Current(); c != nil {
		return c.Planned.Search
	}

	for _, line := range s.lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "search")
		if !ok {
			continue
		}

		return strings.FieldsFunc(rest, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}

	return nil
}

// graph writes the running program's render graph as YAML.
func (s *session) graph(ctx context.Context, w io.Writer) error {
	c := s.eng.Current()
	if c == nil {
		return ErrNoProgram
	}

	return c.Graph.FormatYAML(ctx, w, c.Alloc, 2)
}

// summary describes the running program in one line.
func (s *session) summary() string {
	c := s.eng.Current()
	if c == nil {
		return "no program"
	}

	counts := s.rec.Count()

	return fmt.Sprintf("%s · %d steps · %d passes · %d slots · frame %d · %d dispatches",
		c.ID(),
		len(c.Planned.Steps),
		len(c.Graph.Passes),
		c.Alloc.Len(),
		s.eng.Clock().Frame,
		counts["ExecutePass"],
	)
}
