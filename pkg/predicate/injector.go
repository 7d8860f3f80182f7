package predicate

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/template"
)

// Tier controls how aggressively predicates are injected.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}

// Options configures an Injector.
type Options struct {
	// Complexity selects the injection tier. Defaults to TierMedium.
	Complexity Tier

	// PredicatesPerBranch is the nesting depth used when layering guards
	// around critical operations at the high tier. Defaults to 2.
	PredicatesPerBranch int

	// Rand supplies the randomness for template selection and dead-code
	// placement. Pass a seeded source for reproducible output.
	Rand *rand.Rand
}

// Injector injects opaque predicates into one function at a time. Counters
// are reset at the start of every call; an instance may be reused
// sequentially but must not be shared between concurrent calls.
type Injector struct {
	complexity Tier
	perBranch  int
	rng        *rand.Rand

	funcName   string
	injected   int
	varCounter int
}

// Report summarizes one injection run.
type Report struct {
	TotalPredicatesInjected int      `json:"total_predicates_injected"`
	Complexity              Tier     `json:"complexity"`
	PredicatesPerBranch     int      `json:"predicates_per_branch"`
	TypesUsed               []string `json:"types_used"`
}

// New creates an Injector.
func New(opts Options) *Injector {
	complexity := opts.Complexity
	if complexity == "" {
		complexity = TierMedium
	}
	perBranch := opts.PredicatesPerBranch
	if perBranch <= 0 {
		perBranch = 2
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Injector{
		complexity: complexity,
		perBranch:  perBranch,
		rng:        rng,
	}
}

var (
	comparisonCalls = []string{"strcmp", "strncmp", "memcmp", "==", "!="}
	returnKeyword   = regexp.MustCompile(`\breturn\b`)
	criticalPattern = regexp.MustCompile(`validate_|check_|verify_|authenticate`)
)

// Inject surrounds comparison, return, and critical-operation lines of
// functionCode with predicate guards and, at medium and above, inserts
// dead-code branches. Guarded statements are never rewritten, only
// surrounded, so the transform is semantics-preserving wherever the
// predicates hold. The passes run in a fixed order and each rescans the
// text produced by the previous one.
func (inj *Injector) Inject(functionCode, functionName string) (string, *Report, error) {
	inj.injected = 0
	inj.varCounter = 0
	inj.funcName = functionName
	if inj.funcName == "" {
		inj.funcName = "main"
	}

	modified, err := inj.wrapComparisons(functionCode)
	if err != nil {
		return "", nil, err
	}

	modified, err = inj.wrapReturns(modified)
	if err != nil {
		return "", nil, err
	}

	if inj.complexity == TierMedium || inj.complexity == TierHigh {
		modified, err = inj.addDeadBranches(modified)
		if err != nil {
			return "", nil, err
		}
	}

	if inj.complexity == TierHigh {
		modified, err = inj.wrapCriticalOperations(modified)
		if err != nil {
			return "", nil, err
		}
	}

	return modified, &Report{
		TotalPredicatesInjected: inj.injected,
		Complexity:              inj.complexity,
		PredicatesPerBranch:     inj.perBranch,
		TypesUsed:               []string{string(AlwaysTrue), string(AlwaysFalse), string(ContextDependent)},
	}, nil
}

// wrapComparisons guards every comparison line with an always-true
// predicate. The comparison still executes inside the true branch.
func (inj *Injector) wrapComparisons(code string) (string, error) {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if !containsComparison(line) || isComment(line) {
			out = append(out, line)
			continue
		}

		guard, err := inj.generate(AlwaysTrue)
		if err != nil {
			return "", err
		}

		indent := indentOf(line)
		var b strings.Builder
		b.WriteString(indent + "// Opaque predicate (always true)\n")
		if guard.Decl != "" {
			b.WriteString(indent + guard.Decl + "\n")
		}
		b.WriteString(indent + "if (" + guard.Cond + ") {\n")
		b.WriteString(line + "\n")
		b.WriteString(indent + "}")

		out = append(out, b.String())
		inj.injected++
	}

	return strings.Join(out, "\n"), nil
}

// wrapReturns guards every return line with a context-dependent predicate.
// A return is cosmetically redundant to re-guard: if the predicate were
// false the function would fall through to its other exits, so correctness
// survives the rare platforms where the guard does not hold.
func (inj *Injector) wrapReturns(code string) (string, error) {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if !returnKeyword.MatchString(line) || isComment(line) {
			out = append(out, line)
			continue
		}

		guard, err := inj.generate(ContextDependent)
		if err != nil {
			return "", err
		}

		indent := indentOf(line)
		var b strings.Builder
		b.WriteString(indent + "// Context-dependent opaque predicate\n")
		if guard.Decl != "" {
			b.WriteString(indent + guard.Decl + "\n")
		}
		b.WriteString(indent + "if (" + guard.Cond + ") {\n")
		b.WriteString(line + "\n")
		b.WriteString(indent + "}")

		out = append(out, b.String())
		inj.injected++
	}

	return strings.Join(out, "\n"), nil
}

// Dead-code bodies inserted behind always-false guards.
var deadCodeTemplates = []*template.Template{
	template.New("printf(\"Debug: Should never see this\\n\");\nabort();"),
	template.New("int _dead_{rand} = {value};\n_dead_{rand} *= 2;\nreturn _dead_{rand};"),
	template.New("// Fake error handling\nfprintf(stderr, \"Critical error\\n\");\nexit(1);"),
	template.New("// Fake cleanup\nfree((void*)0xDEADBEEF);\nreturn -1;"),
}

// addDeadBranches inserts always-false-guarded dead code after a bounded
// number of random lines: at most 3 and at most one tenth of the line count.
func (inj *Injector) addDeadBranches(code string) (string, error) {
	lines := strings.Split(code, "\n")

	count := len(lines) / 10
	if count > 3 {
		count = 3
	}

	positions := make(map[int]bool, count)
	for _, p := range inj.rng.Perm(len(lines))[:count] {
		positions[p] = true
	}

	out := make([]string, 0, len(lines)+count)
	for i, line := range lines {
		out = append(out, line)

		if !positions[i] || strings.TrimSpace(line) == "" || isComment(line) {
			continue
		}

		guard, err := inj.generate(AlwaysFalse)
		if err != nil {
			return "", err
		}
		deadCode, err := inj.deadCode()
		if err != nil {
			return "", err
		}

		indent := indentOf(line)
		var b strings.Builder
		b.WriteString("\n" + indent + "// Dead code branch (never taken)\n")
		if guard.Decl != "" {
			b.WriteString(indent + guard.Decl + "\n")
		}
		b.WriteString(indent + "if (" + guard.Cond + ") {\n")
		for _, deadLine := range strings.Split(deadCode, "\n") {
			if strings.TrimSpace(deadLine) != "" {
				b.WriteString(indent + "    " + deadLine + "\n")
			}
		}
		b.WriteString(indent + "}")

		out = append(out, b.String())
		inj.injected++
	}

	return strings.Join(out, "\n"), nil
}

// wrapCriticalOperations layers nested guards around lines naming
// validation or authentication calls. Each layer independently picks
// between an always-true and a context-dependent predicate; only kinds
// that permit the wrapped code to execute are eligible here.
func (inj *Injector) wrapCriticalOperations(code string) (string, error) {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if !criticalPattern.MatchString(line) || isComment(line) {
			out = append(out, line)
			continue
		}

		indent := indentOf(line)
		var b strings.Builder

		for layer := 0; layer < inj.perBranch; layer++ {
			kind := AlwaysTrue
			if inj.rng.Intn(2) == 1 {
				kind = ContextDependent
			}
			guard, err := inj.generate(kind)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&b, "%s// Layered opaque predicate %d\n", indent, layer+1)
			if guard.Decl != "" {
				b.WriteString(indent + guard.Decl + "\n")
			}
			b.WriteString(indent + "if (" + guard.Cond + ") {\n")
			indent += "    "
		}

		b.WriteString(indent + strings.TrimSpace(line) + "\n")

		for layer := 0; layer < inj.perBranch; layer++ {
			indent = indent[:len(indent)-4]
			b.WriteString(indent + "}")
			if layer < inj.perBranch-1 {
				b.WriteString("\n")
			}
		}

		out = append(out, b.String())
		inj.injected += inj.perBranch
	}

	return strings.Join(out, "\n"), nil
}

// containsComparison reports whether a line performs a string/memory
// comparison call or an equality test.
func containsComparison(line string) bool {
	for _, op := range comparisonCalls {
		if strings.Contains(line, op) {
			return true
		}
	}
	return false
}

func isComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// deadCode instantiates a random dead-code template.
func (inj *Injector) deadCode() (string, error) {
	tpl := deadCodeTemplates[inj.rng.Intn(len(deadCodeTemplates))]
	return tpl.Render(map[string]string{
		"rand":  strconv.Itoa(1000 + inj.rng.Intn(9000)),
		"value": strconv.Itoa(1 + inj.rng.Intn(100)),
	})
}
