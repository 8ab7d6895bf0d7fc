package callgraph

import (
	"fmt"
	"sync"
)

// callerToCallee stores edges as caller -> []callee, mirroring the update()
// routine of the original rustxi call graph: a function's graph entry is the
// list of functions it calls. Answering "who calls fn" requires a scan over
// every entry, which is cheap at REPL scale and keeps Update itself O(deps).
type callerToCallee struct {
	mu  sync.RWMutex
	reg *registry
	out map[int][]int // caller index -> callee indices
}

// NewCallerToCallee returns an empty caller->callee oriented call graph.
func NewCallerToCallee() Graph {
	return &callerToCallee{reg: newRegistry(), out: make(map[int][]int)}
}

func (g *callerToCallee) Add(fn string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reg.ensure(fn)
}

func (g *callerToCallee) Update(fn string, deps []string) ([]string, error) {
	g.mu.Lock()

	// Validate every dep before touching fn's own registration: a rejected
	// update must leave the graph exactly as it was, including not
	// registering fn itself.
	for _, dep := range deps {
		if !g.reg.contains(dep) {
			g.mu.Unlock()
			return nil, fmt.Errorf("callgraph: update %q: %w: %q", fn, ErrDepNotInGraph, dep)
		}
	}

	fnIdx := g.reg.ensure(fn)
	callees := make([]int, 0, len(deps))
	for _, dep := range deps {
		callees = append(callees, g.reg.idx(dep))
	}
	g.out[fnIdx] = callees
	g.mu.Unlock()

	return g.FnsDirectlyAffectedBy(fn), nil
}

func (g *callerToCallee) Delete(fn string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.reg.contains(fn) {
		return fmt.Errorf("callgraph: delete %q: %w", fn, ErrFnNotInGraph)
	}
	idx := g.reg.idx(fn)
	delete(g.out, idx)
	for caller, callees := range g.out {
		g.out[caller] = removeIdx(callees, idx)
	}
	return nil
}

func (g *callerToCallee) Contains(fn string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.contains(fn)
}

func (g *callerToCallee) Fns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.fns()
}

func (g *callerToCallee) FnsDirectlyAffectedBy(fn string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.reg.contains(fn) {
		return nil
	}
	target := g.reg.idx(fn)

	var callers []string
	for caller, callees := range g.out {
		for _, c := range callees {
			if c == target {
				callers = append(callers, g.reg.names[caller])
				break
			}
		}
	}
	return callers
}

func (g *callerToCallee) FnsAffectedBy(fn string) []string {
	return fnsAffectedBy(fn, g.FnsDirectlyAffectedBy, func(f string) int {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.reg.idx(f)
	})
}

func removeIdx(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
