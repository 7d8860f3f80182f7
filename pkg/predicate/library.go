// Package predicate injects opaque predicates into C/C++ function text:
// guard conditions whose outcome is fixed (or near-fixed) by construction,
// wrapped around existing statements to obscure control flow without
// changing behavior.
package predicate

import (
	"fmt"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/template"
)

// Kind classifies a predicate by its truth guarantee.
type Kind string

const (
	// AlwaysTrue predicates are non-false for every representable value of
	// their substituted variables. Only these may wrap code that must
	// still execute.
	AlwaysTrue Kind = "always_true"

	// AlwaysFalse predicates are non-true by construction. Only these may
	// gate dead code.
	AlwaysFalse Kind = "always_false"

	// ContextDependent predicates hold under normal runtime conditions but
	// are not provable invariants. They must only wrap code whose skipped
	// execution would still be correct.
	ContextDependent Kind = "context_dependent"
)

// Predicate templates. Slots: {var} binds a freshly declared int, {func}
// the name of the function under transform, {type} a concrete type name.
//
// The {func} alignment entries assume the platform aligns functions to the
// pointer size; that holds for the usual C ABIs but is not a language
// guarantee, which is why they never appear in the AlwaysFalse catalog.
var alwaysTrueTemplates = []*template.Template{
	template.New("({var} * {var}) >= 0"),
	template.New("({var} | ~{var}) == -1"),
	template.New("({var} ^ {var}) == 0"),
	template.New("({var} + 1) > {var} || {var} == INT_MAX"),
	template.New("({var} - {var}) == 0"),
	template.New("((uintptr_t)&{func} % sizeof(void*)) == 0"),
	template.New("sizeof({type}) > 0"),
	template.New("(time(NULL) & 0x7FFFFFFF) > 0"),
	template.New("(clock() >= 0)"),
	template.New("(getpid() > 0)"),
}

var alwaysFalseTemplates = []*template.Template{
	template.New("({var} < {var})"),
	template.New("({var} != {var})"),
	template.New("({var} * 0) != 0"),
	template.New("(({var} & 1) && !({var} & 1))"),
	template.New("(sizeof({type}) == 0)"),
	template.New("((int*)0 != NULL)"),
	template.New("(1 > 2)"),
	template.New("({var} > INT_MAX)"),
	template.New("({var} % 2 == 3)"),
	template.New("(rand() % 4 >= 4)"),
}

var contextDependentTemplates = []*template.Template{
	template.New("((uintptr_t)&{var} % 4) == 0"),
	template.New("((uintptr_t)&{func} % 64) == 0"),
	template.New("(&{var} < (int*)0x7FFFFFFF)"),
	template.New("(__builtin_expect(({var} != 0), 1))"),
}

// Templates exposes the catalog for a kind; used by soundness tests.
func Templates(kind Kind) []*template.Template {
	switch kind {
	case AlwaysTrue:
		return alwaysTrueTemplates
	case AlwaysFalse:
		return alwaysFalseTemplates
	default:
		return contextDependentTemplates
	}
}

// Guard is one instantiated predicate: an optional variable declaration
// plus the boolean condition referencing it. Emitting the declaration on
// its own line keeps the guarded output well-formed C.
type Guard struct {
	Decl string
	Cond string
}

// generate instantiates a random template of the given kind with a fresh
// variable name, so repeated guards in one function never collide.
func (inj *Injector) generate(kind Kind) (Guard, error) {
	catalog := Templates(kind)
	tpl := catalog[inj.rng.Intn(len(catalog))]

	varName := fmt.Sprintf("_opaque_var_%d", inj.varCounter)
	inj.varCounter++

	cond, err := tpl.Render(map[string]string{
		"var":  varName,
		"func": inj.funcName,
		"type": "int",
	})
	if err != nil {
		return Guard{}, err
	}

	guard := Guard{Cond: cond}
	if tpl.Has("var") {
		guard.Decl = fmt.Sprintf("int %s = %d;", varName, 1+inj.rng.Intn(100))
	}
	return guard, nil
}
