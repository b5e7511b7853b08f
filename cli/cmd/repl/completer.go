package repl

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/registry"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "list", "undo", "set", "frame", "graph",
	"effects", "edit", "write", "clear", "quit",
}

// surfaceNames lists every valid surface token.
var surfaceNames = func() []string {
	var names []string

	for _, prefix := range "ofs" {
		for d := '0'; d <= '9'; d++ {
			name := string(prefix) + string(d)
			if _, ok := lang.ParseSurface(name); ok {
				names = append(names, name)
			}
		}
	}

	return names
}()

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes: whitespace, the member-access dot, and DSL punctuation.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';', '#':
		return true
	}

	return false
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input. Returns an empty word when the cursor sits on a
// boundary (after a space, between dots, start of line, etc.).
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	for start = cursor; start > 0; {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	for end = cursor; end < len(input); {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// memberContext classifies the dotted prefix in front of the word starting
// at wordStart. For "noise(scale: 2).bl" the word follows a call, so it
// names a chained operation. For "x + blend.mode.sc" the parent path is
// "blend.mode". Both are zero for a word that does not follow a dot.
func memberContext(input string, wordStart int) (parent string, chained bool) {
	prefix, ok := strings.CutSuffix(input[:wordStart], ".")
	if !ok {
		return "", false
	}

	if strings.HasSuffix(prefix, ")") {
		return "", true
	}

	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.Trim(prefix[pos:], ". \t"), false
}

// inSearch reports whether namespace is in the search order. An empty
// order accepts every namespace.
func inSearch(search []string, namespace string) bool {
	return len(search) == 0 || slices.Contains(search, namespace)
}

// opNames returns the bare names of operations visible through search.
// With chained set, starters are left out and "out" is added.
func opNames(reg *registry.Registry, search []string, chained bool) []string {
	var names []string

	for _, canonical := range reg.Namespaces.Names() {
		ns, name, ok := strings.Cut(canonical, ".")
		if !ok || !inSearch(search, ns) {
			continue
		}

		if chained && reg.Ops.IsStarter(canonical) {
			continue
		}

		names = append(names, name)
	}

	if chained {
		names = append(names, "out")
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// candidates returns the completions for a word following parent.
func candidates(
	reg *registry.Registry,
	search []string,
	parent string,
	chained bool,
) []string {
	if chained {
		return opNames(reg, search, true)
	}

	if parent == "" {
		names := opNames(reg, search, false)
		names = append(names, reg.Namespaces.List()...)
		names = append(names, lang.Keywords()...)
		names = append(names, lang.StateFields...)
		names = append(names, surfaceNames...)
		names = append(names, slices.Collect(maps.Keys(signatures))...)

		slices.Sort(names)

		return slices.Compact(names)
	}

	if reg.Namespaces.Has(parent) {
		var names []string

		for _, canonical := range reg.Namespaces.Names() {
			if name, ok := strings.CutPrefix(canonical, parent+"."); ok {
				names = append(names, name)
			}
		}

		return names
	}

	return reg.Enums.Snapshot().Find(strings.Split(parent, ".")).Names()
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor. It returns the matches (ranked best-first), the candidate list,
// and the word boundaries. An empty word only lists candidates after a dot.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	cands []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, wordStart, wordEnd := wordBounds(input, cursor)

	if m.mode == modeCtrl {
		if word == "" || strings.Contains(input[:wordStart], " ") {
			return nil, nil, wordStart, wordEnd
		}

		cands = ctrlCommands
	} else {
		parent, chained := memberContext(input, wordStart)
		cands = candidates(m.registry(), m.session.search(), parent, chained)

		if word == "" {
			if (parent == "" && !chained) || len(cands) == 0 {
				return nil, nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(cands))
			for i, c := range cands {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, cands, wordStart, wordEnd
		}
	}

	if len(cands) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, cands), cands, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit within width. The selected candidate (when tabbing) uses the
// selected style.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
	isCall func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, isCall(match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Calls get a "()" suffix that is not part of the completion.
func renderCandidate(match fuzzy.Match, selected, call bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	var b strings.Builder

	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if call {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}
