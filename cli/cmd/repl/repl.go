package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/log"
	"github.com/ardnew/fxc/registry"
)

// editedMsg is sent when an edit produced a program that compiles.
type editedMsg struct{ source string }

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a
// syntax error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process encounters any other error.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help              Print this cruft
  list              Print the program
  undo              Drop the last line
  set T.P=V ...     Override argument P of step T and reload
  frame [N]         Run N frames (default 1)
  graph             Print the render graph
  effects [FILTER]  List effects
  edit              Edit the program in external $EDITOR
  write FILE        Save the program
  clear             Clear screen
  quit              Exit REPL

Usage:
  Type a statement to append it to the program; it runs if it compiles
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to switch to command mode and navigate command history
    (restores original mode when reaching end of history)
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// formatCommand formats the echo line of a submitted statement.
func formatCommand(input string) string {
	return promptStyle.Render(evalPrompt) + inputStyle.Render(input)
}

// formatCtrlCommand formats the echo line of a control command.
func formatCtrlCommand(input string) string {
	return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
}

// stash is the unsubmitted input of a mode.
type stash struct {
	text   string
	cursor int
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc          func() context.Context
	input            textinput.Model
	session          *session
	logger           log.Logger
	history          *History
	historyIdx       int
	notice           string        // printed once at startup
	matches          fuzzy.Matches // current fuzzy match results
	candidates       []string      // backing candidate list
	wordStart        int           // byte offset of current word start
	wordEnd          int           // byte offset of current word end
	suggIdx          int           // selected candidate index
	tabActive        bool          // whether user is tab-cycling
	preTabText       string        // input text before tab-cycling began
	preTabCursor     int           // cursor position before tab-cycling began
	altNavActive     bool          // whether user is in Alt+Up/Down navigation
	altNavOrigMode   inputMode     // original mode before Alt navigation
	altNavOrigText   string        // original text before Alt navigation
	altNavOrigCursor int           // original cursor position before Alt navigation
	width            int           // terminal width for ellipsization
	quitting         bool
	mode             inputMode
	stashed          [2]stash // per-mode input, indexed by inputMode
}

// Run starts the REPL on eng with src as the initial program. rec must be
// the recording backend beneath eng; its call counts feed the status line.
// History is kept in cacheDir, or in memory when cacheDir is empty.
func Run(
	ctx context.Context,
	eng *engine.Engine,
	rec *backend.Recorder,
	src string,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("source_length", len(src)),
	)

	sess := newSession(eng, rec, src)

	var notice string

	if c, err := sess.load(ctx); err != nil {
		notice = renderError(err)
	} else {
		notice = renderCompiled(c, nil)
	}

	var history *History
	if cacheDir != "" {
		history = NewHistory(filepath.Join(cacheDir, baseHistory))
	} else {
		history = NewHistory("")
	}

	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	m := newModel(ctx, sess, history, logger)
	m.notice = notice

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	sess *session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    sess,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) registry() *registry.Registry { return m.session.eng.Registry() }

// isCall reports whether name completes to something written with
// parentheses.
func (m model) isCall(name string) bool {
	_, ok := lookupSignature(m.registry(), m.session.search(), name)

	return ok
}

func (m model) Init() tea.Cmd {
	if m.notice == "" {
		return textinput.Blink
	}

	return tea.Batch(textinput.Blink, tea.Println(m.notice))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editedMsg:
		c, err := m.session.replace(m.ctxFunc(), msg.source)
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Bool("loaded", err == nil),
		)

		return m, m.compiled(c, err)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(renderError(msg.err))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectFunctionCall(input, m.input.Position())

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		if m.mode == modeEval {
			b.WriteString(hintStyle.Render(m.session.summary()))
		} else {
			b.WriteString(hintStyle.Render(
				"Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)"))
		}

	case call.inCall && m.mode == modeEval && len(m.matches) == 0:
		if sig, ok := lookupSignature(m.registry(), m.session.search(), call.name); ok {
			b.WriteString(renderSignatureHint(sig, paramIndex(sig, call)))
		}

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(
			m.matches, m.suggIdx, m.tabActive, m.width, m.isCall,
		))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyMoveCtrl(-1), nil
		}

		return m.historyMove(-1), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyMoveCtrl(1), nil
		}

		return m.historyMove(1), nil

	case tea.KeyShiftUp:
		return m.historyMoveInMode(-1), nil

	case tea.KeyShiftDown:
		return m.historyMoveInMode(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		return m.toggleMode(), nil

	case tea.KeyRunes:
		// Space ends tab-cycling and keeps the candidate.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// Backspace, delete, cursor movement: edit without auto-confirm.
	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by dir, starting a cycle when none is
// active. A single candidate is completed and confirmed at once.
func (m model) cycle(dir int) model {
	n := len(m.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m

	case m.tabActive:
		m.suggIdx = (m.suggIdx + dir + n) % n

	default:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if dir < 0 {
			m.suggIdx = n - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word boundaries in the input with
// the given replacement text and repositions the cursor.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	newCursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(newCursor)

	m.wordEnd = newCursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true it also confirms the completion when exactly
// one candidate remains and the typed word already equals it. Deletions
// and cursor movement pass false so editing never completes unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.stashed = [2]stash{}
	m.input.SetValue("")

	if err := m.history.Add(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		m.logger.TraceContext(m.ctxFunc(), "repl command", slog.String("input", input))

		return m.executeCommand(input)
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval", slog.String("input", input))

	c, err := m.session.eval(m.ctxFunc(), input)

	return m, tea.Sequence(tea.Println(formatCommand(input)), m.compiled(c, err))
}

// compiled reports the result of a reload and, on success, runs one frame
// of the new program.
func (m model) compiled(c *engine.Compiled, err error) tea.Cmd {
	if err != nil {
		return tea.Println(renderError(err))
	}

	return tea.Println(renderCompiled(c, m.session.run(m.ctxFunc(), 1)))
}

// renderCompiled lists the diagnostics of c followed by a status line.
func renderCompiled(c *engine.Compiled, frameErr error) string {
	var lines []string

	for _, d := range c.Diagnostics() {
		style := hintStyle

		switch d.Severity {
		case lang.SeverityError:
			style = errorStyle
		case lang.SeverityWarning:
			style = warningStyle
		}

		lines = append(lines, style.Render(d.String()))
	}

	for _, e := range c.Errors() {
		lines = append(lines, errorStyle.Render(e.Error()))
	}

	if frameErr != nil {
		lines = append(lines, errorStyle.Render("frame: "+frameErr.Error()))
	}

	lines = append(lines, resultStyle.Render(fmt.Sprintf("✔ %s · %d passes · %d slots",
		c.ID(), len(c.Graph.Passes), c.Alloc.Len())))

	return strings.Join(lines, "\n")
}

// renderError formats err, keeping a syntax error's snippet unstyled so
// the caret stays aligned.
func renderError(err error) string {
	var se *lang.SyntaxError
	if !errors.As(err, &se) {
		return errorStyle.Render("error: " + err.Error())
	}

	msg, snippet, _ := strings.Cut(se.Error(), ":\n")

	return errorStyle.Render(msg) + "\n" + strings.TrimRight(snippet, "\n")
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echoCmd := tea.Println(formatCtrlCommand(input))
	ctx := m.ctxFunc()

	cmd, args := parts[0], parts[1:]

	m.logger.TraceContext(ctx, "repl exec command",
		slog.String("command", cmd),
		slog.Any("args", args),
	)

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echoCmd, tea.Println(m.listProgram()))

	case "u", "undo":
		c, err := m.session.undo(ctx)

		return m, tea.Sequence(echoCmd, m.compiled(c, err))

	case "s", "set":
		c, err := m.session.set(ctx, args)

		return m, tea.Sequence(echoCmd, m.compiled(c, err))

	case "f", "frame":
		n := 1

		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return m, tea.Sequence(echoCmd,
					tea.Println(errorStyle.Render("frame count must be a positive integer")))
			}

			n = v
		}

		if err := m.session.run(ctx, n); err != nil {
			return m, tea.Sequence(echoCmd, tea.Println(renderError(err)))
		}

		return m, tea.Sequence(echoCmd, tea.Println(resultStyle.Render(m.session.summary())))

	case "g", "graph":
		var buf bytes.Buffer
		if err := m.session.graph(ctx, &buf); err != nil {
			return m, tea.Sequence(echoCmd, tea.Println(renderError(err)))
		}

		return m, tea.Sequence(echoCmd, tea.Println(strings.TrimRight(buf.String(), "\n")))

	case "effects":
		return m, tea.Sequence(echoCmd, tea.Println(m.listEffects(strings.Join(args, " "))))

	case "e", "edit":
		return m, tea.Sequence(echoCmd, m.handleEdit())

	case "w", "write":
		if len(args) != 1 {
			return m, tea.Sequence(echoCmd, tea.Println(errorStyle.Render("usage: write FILE")))
		}

		if err := os.WriteFile(args[0], []byte(m.session.source()), 0o644); err != nil { //nolint:gosec
			return m, tea.Sequence(echoCmd, tea.Println(renderError(err)))
		}

		return m, tea.Sequence(echoCmd, tea.Println(resultStyle.Render("✔ wrote "+args[0])))

	case "c", "clear":
		return m, tea.ClearScreen

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + cmd + " (try 'help')"),
		)
	}
}

func (m model) handleEdit() tea.Cmd {
	eng := m.session.eng

	cmd := &editCommand{
		source:  m.session.source(),
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
		compile: func(ctx context.Context, src string) error {
			_, err := eng.Compile(ctx, src)

			return err
		},
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		if errors.Is(err, ErrEditDeclined) {
			return editDeclinedMsg{}
		}

		if err != nil {
			return editErrorMsg{err: err}
		}

		if cmd.edited == "" {
			return editCancelledMsg{}
		}

		return editedMsg{source: cmd.edited}
	})
}

func (m model) listProgram() string {
	var b strings.Builder

	width := len(strconv.Itoa(len(m.session.lines)))

	for i, line := range m.session.lines {
		b.WriteString(hintStyle.Render(fmt.Sprintf("%*d", width, i+1)))
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m model) listEffects(filter string) string {
	cat := m.session.eng.Catalog()
	names := cat.Names()

	if filter != "" {
		matches := fuzzy.Find(filter, names)
		names = names[:0:0]

		for _, match := range matches {
			names = append(names, match.Str)
		}
	}

	var b strings.Builder

	for _, name := range names {
		d, ok := cat.Lookup(name)
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(d.Description))
	}

	return strings.TrimRight(b.String(), "\n")
}

// historyFind returns the index of the nearest entry from the current
// history position in direction dir accepted by keep, or -1.
func (m model) historyFind(dir int, keep func(HistoryEntry) bool) int {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		if e, err := m.history.Entry(i); err == nil && (keep == nil || keep(e)) {
			return i
		}
	}

	return -1
}

// showHistory loads entry i into the input, switching to its mode when
// follow is set.
func (m model) showHistory(i int, follow bool) model {
	e, err := m.history.Entry(i)
	if err != nil {
		return m
	}

	if follow && m.mode != e.Mode {
		m = m.switchToMode(e.Mode)
	}

	m.historyIdx = i
	m.input.SetValue(e.Line)
	m.input.SetCursor(len(e.Line))
	refreshMatches(&m, false)

	return m
}

// leaveHistory returns to an empty line past the newest entry.
func (m model) leaveHistory() model {
	m.historyIdx = m.history.Len()
	m.input.SetValue("")
	refreshMatches(&m, false)

	return m
}

func (m model) historyMove(dir int) model {
	if i := m.historyFind(dir, nil); i >= 0 {
		return m.showHistory(i, true)
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		return m.leaveHistory()
	}

	return m
}

func (m model) historyMoveInMode(dir int) model {
	mode := m.mode

	if i := m.historyFind(dir, func(e HistoryEntry) bool { return e.Mode == mode }); i >= 0 {
		return m.showHistory(i, false)
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		return m.leaveHistory()
	}

	return m
}

// historyMoveCtrl walks command history from any mode. Walking off either
// end restores the mode and input in use when the walk began.
func (m model) historyMoveCtrl(dir int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	if i := m.historyFind(dir, func(e HistoryEntry) bool { return e.Mode == modeCtrl }); i >= 0 {
		return m.showHistory(i, false)
	}

	m.altNavActive = false

	if m.altNavOrigMode != m.mode {
		m = m.switchToMode(m.altNavOrigMode)
	}

	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

// toggleMode switches between eval and control modes.
func (m model) toggleMode() model {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode switches to mode, stashing the current input and restoring
// the input last stashed for mode.
func (m model) switchToMode(mode inputMode) model {
	m.stashed[m.mode] = stash{text: m.input.Value(), cursor: m.input.Position()}
	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	}

	m.input.SetValue(m.stashed[mode].text)
	m.input.SetCursor(m.stashed[mode].cursor)
	refreshMatches(&m, false)

	return m
}
