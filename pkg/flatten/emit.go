package flatten

import (
	"fmt"
	"regexp"
	"strings"
)

// UnparseableConditionError reports a conditional block whose code has no
// recognizable parenthesized if/while condition. Emitting a made-up branch
// instead would silently corrupt the function's semantics, so this is fatal.
type UnparseableConditionError struct {
	BlockID int
}

func (e *UnparseableConditionError) Error() string {
	return fmt.Sprintf("block %d: no parenthesized if/while condition found", e.BlockID)
}

var (
	conditionKeyword = regexp.MustCompile(`\b(if|while)\b`)
	returnStatement  = regexp.MustCompile(`\breturn\b`)
	returnExpr       = regexp.MustCompile(`return\s+([^;]+);`)
)

// emit serializes the block list into the dispatcher form: a state variable
// and next-state variable, an optional return-value holder, and an endless
// loop switching on the state. Blocks are emitted in their (shuffled) slice
// order; case labels carry the original ids, so transition semantics are
// unchanged by the shuffle.
func (f *Flattener) emit(signature, returnType string) (string, error) {
	hasRet := returnType != "" && returnType != "void"

	var b strings.Builder
	b.WriteString(signature + " {\n")
	b.WriteString("\n    // State machine for control flow flattening\n")
	b.WriteString("    int _state = 0;\n")
	b.WriteString("    int _next_state = 0;\n")
	if hasRet {
		fmt.Fprintf(&b, "    %s _ret_val;\n", returnType)
	}

	b.WriteString("\n    while (1) {\n        switch (_state) {\n")

	for _, block := range f.blocks {
		fmt.Fprintf(&b, "        case %d:\n", block.ID)

		for _, line := range strings.Split(block.Code, "\n") {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(&b, "            %s\n", line)
			}
		}

		// Classification matches against blanked text, like segmentation:
		// a "return" inside a comment or string literal must not turn the
		// block into an exit.
		blanked := blankLiterals(block.Code)

		switch {
		case block.IsConditional:
			condition, err := extractCondition(block.Code, blanked)
			if err != nil {
				return "", &UnparseableConditionError{BlockID: block.ID}
			}
			fmt.Fprintf(&b, "\n            if (%s) {\n", condition)
			fmt.Fprintf(&b, "                _next_state = %d;\n", block.TrueState)
			b.WriteString("            } else {\n")
			fmt.Fprintf(&b, "                _next_state = %d;\n", block.FalseState)
			b.WriteString("            }\n")

		case returnStatement.MatchString(blanked):
			if hasRet {
				if m := returnExpr.FindStringSubmatchIndex(blanked); m != nil {
					fmt.Fprintf(&b, "            _ret_val = %s;\n", block.Code[m[2]:m[3]])
				}
				b.WriteString("            return _ret_val;\n")
			} else {
				b.WriteString("            return;\n")
			}

		default:
			fmt.Fprintf(&b, "            _next_state = %d;\n", block.NextState)
		}

		b.WriteString("            break;\n\n")
	}

	b.WriteString("        default:\n")
	b.WriteString("            // Invalid state - should never reach here\n")
	if hasRet {
		b.WriteString("            return _ret_val;\n")
	} else {
		b.WriteString("            return;\n")
	}
	b.WriteString("        }\n")
	b.WriteString("\n        // Update state\n")
	b.WriteString("        _state = _next_state;\n")
	b.WriteString("    }\n")

	if hasRet {
		b.WriteString("\n    // Not reached, fallback return\n")
		b.WriteString("    return _ret_val;\n")
	}
	b.WriteString("}\n")

	return b.String(), nil
}

// extractCondition pulls the boolean condition out of the leading if/while
// of a conditional block: the text between the first balanced parentheses
// after the keyword. Keyword and paren positions are found in the blanked
// text so comments and literals stay inert, then the condition is sliced
// out of the original code with its literals intact. Nested parentheses
// are matched by depth counting.
func extractCondition(code, blanked string) (string, error) {
	loc := conditionKeyword.FindStringIndex(blanked)
	if loc == nil {
		return "", fmt.Errorf("no if/while keyword")
	}

	open := strings.IndexByte(blanked[loc[1]:], '(')
	if open < 0 {
		return "", fmt.Errorf("no opening parenthesis")
	}
	start := loc[1] + open + 1

	depth := 1
	for i := start; i < len(blanked); i++ {
		switch blanked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return code[start:i], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced parentheses")
}
