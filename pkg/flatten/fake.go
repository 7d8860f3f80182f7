package flatten

import (
	"strconv"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/template"
)

// Dead-code templates for fake blocks. Each reads plausibly but is guarded
// by an impossible condition or targets an unreachable state.
var fakeTemplates = []*template.Template{
	template.New(`
            // Dead code branch
            int _fake_var_{rand} = {value};
            if (_fake_var_{rand} > {impossible}) {
                return {ret};
            }
            `),
	template.New(`
            // Impossible condition
            int _x_{rand} = {value};
            if (_x_{rand} == 0 && _x_{rand} != 0) {
                abort();
            }
            `),
	template.New(`
            // Always-false predicate
            volatile int _v_{rand} = {value};
            if (_v_{rand} < 0 && _v_{rand} > 0) {
                exit(1);
            }
            `),
}

var fakeReturnValues = []string{"0", "1", "-1"}

// addFakeBlocks appends the configured number of fake blocks and then
// shuffles every block except the entry. A fake block's successor is a
// uniformly random id among the blocks existing when it is created, which
// may be itself; it stays unreachable because no real block ever targets a
// fake id. Shuffling changes emission order only, ids are never renumbered.
func (f *Flattener) addFakeBlocks() {
	for i := 0; i < f.fakeBlocks; i++ {
		id := f.nextBlockID
		f.nextBlockID++

		f.blocks = append(f.blocks, &BasicBlock{
			ID:            id,
			Code:          f.fakeCode(),
			NextState:     f.rng.Intn(len(f.blocks) + 1),
			IsConditional: false,
			TrueState:     NoState,
			FalseState:    NoState,
			IsFake:        true,
		})
	}

	if len(f.blocks) > 1 {
		rest := f.blocks[1:]
		f.rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
	}
}

// fakeCode instantiates a random dead-code template with fresh identifiers
// and values.
func (f *Flattener) fakeCode() string {
	tpl := fakeTemplates[f.rng.Intn(len(fakeTemplates))]
	return tpl.MustRender(map[string]string{
		"rand":       strconv.Itoa(1000 + f.rng.Intn(9000)),
		"value":      strconv.Itoa(1 + f.rng.Intn(100)),
		"impossible": strconv.Itoa(1000 + f.rng.Intn(9000)),
		"ret":        fakeReturnValues[f.rng.Intn(len(fakeReturnValues))],
	})
}
