package flatten

import (
	"math/rand"
	"time"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
)

// Options configures a Flattener.
type Options struct {
	// FakeBlocks is the number of synthetic unreachable blocks to add.
	FakeBlocks int

	// Rand supplies the randomness for fake-block generation and block
	// shuffling. Pass a seeded source for reproducible output. Nil falls
	// back to a time-seeded source.
	Rand *rand.Rand
}

// Flattener flattens one function at a time. Internal state is reset at the
// start of every call, so a single instance may be reused sequentially, but
// it must not be shared between concurrent calls.
type Flattener struct {
	fakeBlocks  int
	rng         *rand.Rand
	blocks      []*BasicBlock
	nextBlockID int
}

// New creates a Flattener.
func New(opts Options) *Flattener {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Flattener{
		fakeBlocks: opts.FakeBlocks,
		rng:        rng,
	}
}

// Flatten rewrites the control flow of the named function in src into a
// state-machine dispatcher and returns the new function text plus a report.
func (f *Flattener) Flatten(src []byte, lang extractor.Language, name string) (string, *Report, error) {
	f.blocks = nil
	f.nextBlockID = 0

	parts, err := extractor.ExtractParts(src, lang, name)
	if err != nil {
		return "", nil, err
	}

	f.segmentBody(parts.Body)
	f.addFakeBlocks()

	out, err := f.emit(parts.Signature, parts.ReturnType)
	if err != nil {
		return "", nil, err
	}

	return out, report(f.blocks), nil
}

// addBlock closes a block and assigns its successor ids. Conditional blocks
// reserve the next two unallocated ids for branches that do not exist yet.
func (f *Flattener) addBlock(code string, isConditional bool) {
	block := &BasicBlock{
		ID:            f.nextBlockID,
		Code:          code,
		IsConditional: isConditional,
		NextState:     NoState,
		TrueState:     NoState,
		FalseState:    NoState,
	}
	f.nextBlockID++

	if isConditional {
		block.TrueState = f.nextBlockID
		block.FalseState = f.nextBlockID + 1
	} else {
		block.NextState = f.nextBlockID
	}

	f.blocks = append(f.blocks, block)
}
