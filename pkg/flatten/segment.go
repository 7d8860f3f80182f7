package flatten

import (
	"regexp"
	"strings"
)

// Control keywords that open a new block. A line containing any of these as
// a whole token is a split point; only if/while/for mark the block as
// conditional (else and return do not fork).
var (
	splitKeyword       = regexp.MustCompile(`\b(if|else|while|for|return)\b`)
	conditionalKeyword = regexp.MustCompile(`\b(if|while|for)\b`)
)

// segmentBody walks the body line by line and closes a block at every
// control-flow split point. The grouping is a lexical approximation of CFG
// construction: brace nesting does not influence where blocks end, so a
// block may carry statements from an enclosing brace scope. Keyword
// detection, however, is structural: literals and comments are blanked
// before matching, so an "if" inside a string or comment never splits.
func (f *Flattener) segmentBody(body string) {
	lines := strings.Split(strings.TrimSpace(body), "\n")

	var current []string
	currentConditional := false
	inComment := false

	for _, line := range lines {
		var code string
		code, inComment = codeOnly(line, inComment)

		if splitKeyword.MatchString(code) {
			if len(current) > 0 {
				f.addBlock(strings.Join(current, "\n"), currentConditional)
			}
			current = []string{line}
			currentConditional = conditionalKeyword.MatchString(code)
		} else {
			current = append(current, line)
		}
	}

	if len(current) > 0 {
		f.addBlock(strings.Join(current, "\n"), currentConditional)
	}
}

// blankLiterals blanks literals and comments out of a whole block of code,
// carrying block-comment state across lines. Comment-truncated lines are
// padded back to their original length so every byte offset in the result
// maps to the same offset in code.
func blankLiterals(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, len(lines))
	inComment := false

	for i, line := range lines {
		var blanked string
		blanked, inComment = codeOnly(line, inComment)
		if len(blanked) < len(line) {
			blanked += strings.Repeat(" ", len(line)-len(blanked))
		}
		out[i] = blanked
	}

	return strings.Join(out, "\n")
}

// codeOnly blanks string literals, character literals, and comments out of
// a source line, returning the remaining code text and the block-comment
// state to carry into the next line. Blanked regions become spaces so byte
// offsets stay aligned with the original line.
func codeOnly(line string, inComment bool) (string, bool) {
	var b strings.Builder
	b.Grow(len(line))

	const (
		stateCode = iota
		stateString
		stateChar
	)
	state := stateCode
	escaped := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if inComment {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inComment = false
				b.WriteString("  ")
				i++
				continue
			}
			b.WriteByte(' ')
			continue
		}

		switch state {
		case stateString, stateChar:
			b.WriteByte(' ')
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
			} else if (state == stateString && c == '"') || (state == stateChar && c == '\'') {
				state = stateCode
			}

		default:
			if c == '/' && i+1 < len(line) {
				if line[i+1] == '/' {
					// Rest of the line is a comment.
					return b.String(), false
				}
				if line[i+1] == '*' {
					inComment = true
					b.WriteString("  ")
					i++
					continue
				}
			}
			switch c {
			case '"':
				state = stateString
				b.WriteByte(' ')
			case '\'':
				state = stateChar
				b.WriteByte(' ')
			default:
				b.WriteByte(c)
			}
		}
	}

	return b.String(), inComment
}
