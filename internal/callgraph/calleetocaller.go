package callgraph

import (
	"fmt"
	"sync"
)

// calleeToCaller stores edges as callee -> []caller, the transpose of
// callerToCallee. FnsDirectlyAffectedBy is then a direct map lookup instead
// of a scan, at the cost of touching every dependency's reverse list on
// every Update.
type calleeToCaller struct {
	mu  sync.RWMutex
	reg *registry
	in  map[int][]int // callee index -> caller indices
}

// NewCalleeToCaller returns an empty callee->caller oriented call graph.
func NewCalleeToCaller() Graph {
	return &calleeToCaller{reg: newRegistry(), in: make(map[int][]int)}
}

func (g *calleeToCaller) Add(fn string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reg.ensure(fn)
}

func (g *calleeToCaller) Update(fn string, deps []string) ([]string, error) {
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

	// Drop fn from every callee's caller list before re-adding.
	for callee, callers := range g.in {
		g.in[callee] = removeIdx(callers, fnIdx)
	}

	for _, dep := range deps {
		depIdx := g.reg.idx(dep)
		g.in[depIdx] = appendUnique(g.in[depIdx], fnIdx)
	}
	g.mu.Unlock()

	return g.FnsDirectlyAffectedBy(fn), nil
}

func (g *calleeToCaller) Delete(fn string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.reg.contains(fn) {
		return fmt.Errorf("callgraph: delete %q: %w", fn, ErrFnNotInGraph)
	}
	idx := g.reg.idx(fn)
	delete(g.in, idx)
	for callee, callers := range g.in {
		g.in[callee] = removeIdx(callers, idx)
	}
	return nil
}

func (g *calleeToCaller) Contains(fn string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.contains(fn)
}

func (g *calleeToCaller) Fns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.fns()
}

func (g *calleeToCaller) FnsDirectlyAffectedBy(fn string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.reg.contains(fn) {
		return nil
	}
	callers := g.in[g.reg.idx(fn)]
	out := make([]string, len(callers))
	for i, c := range callers {
		out[i] = g.reg.names[c]
	}
	return out
}

func (g *calleeToCaller) FnsAffectedBy(fn string) []string {
	return fnsAffectedBy(fn, g.FnsDirectlyAffectedBy, func(f string) int {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.reg.idx(f)
	})
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
