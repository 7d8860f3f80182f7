// Package flatten rewrites the control flow of a single C/C++ function into
// a state-machine dispatcher: the body is segmented into basic blocks, fake
// unreachable blocks are mixed in, and the result is emitted as a switch
// driven by a state variable inside an endless loop.
package flatten

// NoState marks an absent successor id.
const NoState = -1

// BasicBlock is a unit of sequential code with one or two successors.
// Successor ids for conditional blocks are reserved before those blocks
// exist: segmentation is single-pass and the next two unallocated ids are
// claimed at creation time.
type BasicBlock struct {
	ID            int
	Code          string
	NextState     int
	IsConditional bool
	TrueState     int
	FalseState    int
	IsFake        bool
}

// Report summarizes one flattening run. It is recomputed from the block
// list on every call and never persisted.
type Report struct {
	TotalBlocks        int     `json:"total_blocks"`
	RealBlocks         int     `json:"real_blocks"`
	FakeBlocks         int     `json:"fake_blocks"`
	ConditionalBlocks  int     `json:"conditional_blocks"`
	ComplexityIncrease float64 `json:"complexity_increase"`
}

// report derives the summary from the current block list.
func report(blocks []*BasicBlock) *Report {
	r := &Report{TotalBlocks: len(blocks)}
	for _, b := range blocks {
		if b.IsFake {
			r.FakeBlocks++
			continue
		}
		r.RealBlocks++
		if b.IsConditional {
			r.ConditionalBlocks++
		}
	}
	real := r.RealBlocks
	if real < 1 {
		real = 1
	}
	r.ComplexityIncrease = float64(r.TotalBlocks) / float64(real)
	return r
}
