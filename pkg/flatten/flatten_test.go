package flatten

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
)

const simpleSource = `
int classify(int a, int b) {
    int x = 1;
    if (a == b) {
        x = 2;
    }
    return x;
}
`

const voidSource = `
void reset(int *p) {
    int tmp = 0;
    *p = tmp;
    return;
}
`

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestFlatten_EntryBlockStaysFirst(t *testing.T) {
	f := New(Options{FakeBlocks: 6, Rand: seeded(7)})

	out, _, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	// The entry case must be emitted first and carry the first statement
	// of the original body, whatever the shuffle did to the rest.
	entryIdx := strings.Index(out, "case 0:")
	require.GreaterOrEqual(t, entryIdx, 0)

	next := strings.Index(out[entryIdx+len("case 0:"):], "case ")
	require.Greater(t, next, 0)
	entrySection := out[entryIdx : entryIdx+len("case 0:")+next]
	assert.Contains(t, entrySection, "int x = 1;")

	firstCase := strings.Index(out, "case ")
	assert.Equal(t, firstCase, entryIdx, "case 0 must be the first emitted case")
}

func TestFlatten_FakeBlockCount(t *testing.T) {
	f := New(Options{FakeBlocks: 4, Rand: seeded(1)})

	_, report, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	assert.Equal(t, 4, report.FakeBlocks)
	assert.Equal(t, report.TotalBlocks, report.RealBlocks+report.FakeBlocks)
	assert.Greater(t, report.ComplexityIncrease, 1.0)
}

func TestFlatten_ZeroFakeBlocks(t *testing.T) {
	f := New(Options{FakeBlocks: 0, Rand: seeded(1)})

	_, report, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	assert.Equal(t, 0, report.FakeBlocks)
	assert.Equal(t, report.TotalBlocks, report.RealBlocks)
}

func TestFlatten_UniqueCaseLabels(t *testing.T) {
	f := New(Options{FakeBlocks: 8, Rand: seeded(99)})

	out, _, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	caseLabel := regexp.MustCompile(`case (\d+):`)
	seen := make(map[string]bool)
	for _, m := range caseLabel.FindAllStringSubmatch(out, -1) {
		assert.False(t, seen[m[1]], "duplicate case label %s", m[1])
		seen[m[1]] = true
	}
	require.NotEmpty(t, seen)
}

func TestFlatten_DeterministicWithSeed(t *testing.T) {
	first, _, err := New(Options{FakeBlocks: 5, Rand: seeded(42)}).
		Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	second, _, err := New(Options{FakeBlocks: 5, Rand: seeded(42)}).
		Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFlatten_ReturnValueCaptured(t *testing.T) {
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	assert.Contains(t, out, "int _ret_val;")
	assert.Contains(t, out, "_ret_val = x;")
	assert.Contains(t, out, "return _ret_val;")
}

func TestFlatten_VoidFunctionHasNoHolder(t *testing.T) {
	f := New(Options{FakeBlocks: 2, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(voidSource), extractor.C, "reset")
	require.NoError(t, err)

	assert.NotContains(t, out, "_ret_val")
	assert.Contains(t, out, "return;")
}

func TestFlatten_ConditionSurvives(t *testing.T) {
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	assert.Contains(t, out, "if (a == b) {\n                _next_state = ")
}

func TestFlatten_FunctionNotFound(t *testing.T) {
	f := New(Options{FakeBlocks: 2, Rand: seeded(3)})

	out, report, err := f.Flatten([]byte(simpleSource), extractor.C, "missing")
	require.Error(t, err)

	var notFound *extractor.FunctionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
	assert.Empty(t, out)
	assert.Nil(t, report)
}

func TestFlatten_ForLoopConditionIsFatal(t *testing.T) {
	src := `
int sum(int n) {
    int total = 0;
    for (int i = 0; i < n; i = i + 1) {
        total = total + i;
    }
    return total;
}
`
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	_, _, err := f.Flatten([]byte(src), extractor.C, "sum")
	require.Error(t, err)

	var unparseable *UnparseableConditionError
	require.ErrorAs(t, err, &unparseable)
}

func TestFlatten_WhileLoopCondition(t *testing.T) {
	src := `
int countdown(int n) {
    while (n > 0) {
        n = n - 1;
    }
    return n;
}
`
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(src), extractor.C, "countdown")
	require.NoError(t, err)
	assert.Contains(t, out, "if (n > 0) {")
}

func TestFlatten_ReusableInstance(t *testing.T) {
	f := New(Options{FakeBlocks: 3, Rand: seeded(5)})

	_, first, err := f.Flatten([]byte(simpleSource), extractor.C, "classify")
	require.NoError(t, err)

	_, second, err := f.Flatten([]byte(voidSource), extractor.C, "reset")
	require.NoError(t, err)

	// Block state must not leak between calls.
	assert.Equal(t, 3, first.FakeBlocks)
	assert.Equal(t, 3, second.FakeBlocks)
	assert.Equal(t, second.TotalBlocks, second.RealBlocks+second.FakeBlocks)
}

func TestExtractCondition_NestedParens(t *testing.T) {
	code := "    if (check(a, b) && (x > 0)) {"
	cond, err := extractCondition(code, blankLiterals(code))
	require.NoError(t, err)
	assert.Equal(t, "check(a, b) && (x > 0)", cond)
}

func TestExtractCondition_ParensInsideStringLiteral(t *testing.T) {
	code := `    if (strcmp(s, ")(") == 0) {`
	cond, err := extractCondition(code, blankLiterals(code))
	require.NoError(t, err)
	assert.Equal(t, `strcmp(s, ")(") == 0`, cond)
}

func TestExtractCondition_KeywordInCommentIgnored(t *testing.T) {
	code := "    // while waiting\n    if (ready) {"
	cond, err := extractCondition(code, blankLiterals(code))
	require.NoError(t, err)
	assert.Equal(t, "ready", cond)
}

func TestExtractCondition_NoCondition(t *testing.T) {
	code := "    else {"
	_, err := extractCondition(code, blankLiterals(code))
	require.Error(t, err)
}

func TestFlatten_ReturnInCommentIsNotAnExit(t *testing.T) {
	src := `
void touch(int *p) {
    int x = 1; // return early if possible
    *p = x;
    if (x > 0) {
        *p = 2;
    }
}
`
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(src), extractor.C, "touch")
	require.NoError(t, err)

	// The entry block's only "return" is commented out; it must transition
	// to the conditional, not exit the function.
	entryIdx := strings.Index(out, "case 0:")
	require.GreaterOrEqual(t, entryIdx, 0)
	next := strings.Index(out[entryIdx:], "break;")
	require.Greater(t, next, 0)
	entrySection := out[entryIdx : entryIdx+next]
	assert.Contains(t, entrySection, "_next_state = 1;")
	assert.NotContains(t, entrySection, "return;")

	assert.Contains(t, out, "if (x > 0) {\n                _next_state = ")
}

func TestFlatten_ReturnInStringIsNotAnExit(t *testing.T) {
	src := `
void announce(int n) {
    puts("return value follows");
    log_value(n);
}
`
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(src), extractor.C, "announce")
	require.NoError(t, err)

	entryIdx := strings.Index(out, "case 0:")
	require.GreaterOrEqual(t, entryIdx, 0)
	next := strings.Index(out[entryIdx:], "break;")
	require.Greater(t, next, 0)
	entrySection := out[entryIdx : entryIdx+next]
	assert.Contains(t, entrySection, "_next_state = 1;")
	assert.NotContains(t, entrySection, "\n            return;")
}

func TestFlatten_StringReturnValueSurvivesCapture(t *testing.T) {
	src := `
char *status(int ok) {
    if (ok) {
        return "ready; steady";
    }
    return "failed";
}
`
	f := New(Options{FakeBlocks: 0, Rand: seeded(3)})

	out, _, err := f.Flatten([]byte(src), extractor.C, "status")
	require.NoError(t, err)

	assert.Contains(t, out, `_ret_val = "ready; steady";`)
	assert.Contains(t, out, `_ret_val = "failed";`)
}
