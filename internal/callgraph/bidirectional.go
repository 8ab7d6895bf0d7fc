package callgraph

import (
	"fmt"
	"sort"
)

// Bidirectional keeps a callerToCallee and a calleeToCaller graph in lock
// step and asserts, after every Update and on every FnsDirectlyAffectedBy
// query, that both agree on direct affectedness. Add and Delete make no
// such check; Delete only panics if the two disagree on accepting it. It
// exists to catch a divergence between the two storage
// strategies during development rather than to be faster than either alone.
type Bidirectional struct {
	fwd *callerToCallee
	rev *calleeToCaller
}

// NewBidirectional returns an empty graph backed by both orientations.
func NewBidirectional() *Bidirectional {
	return &Bidirectional{
		fwd: NewCallerToCallee().(*callerToCallee),
		rev: NewCalleeToCaller().(*calleeToCaller),
	}
}

func (g *Bidirectional) Add(fn string) {
	g.fwd.Add(fn)
	g.rev.Add(fn)
}

func (g *Bidirectional) Update(fn string, deps []string) ([]string, error) {
	affectedFwd, err := g.fwd.Update(fn, deps)
	if err != nil {
		// Both orientations start empty and see the identical call
		// sequence, so they must agree on acceptance; fwd's rejection
		// means rev was never even asked to mutate.
		return nil, err
	}
	affectedRev, err := g.rev.Update(fn, deps)
	if err != nil {
		panic(fmt.Sprintf("callgraph: bidirectional orientations disagree on update acceptance for %q: fwd accepted, rev rejected: %v", fn, err))
	}
	g.assertAgree(fn, affectedFwd, affectedRev)
	return affectedFwd, nil
}

func (g *Bidirectional) Delete(fn string) error {
	if err := g.fwd.Delete(fn); err != nil {
		return err
	}
	if err := g.rev.Delete(fn); err != nil {
		panic(fmt.Sprintf("callgraph: bidirectional orientations disagree on delete acceptance for %q: fwd accepted, rev rejected: %v", fn, err))
	}
	return nil
}

func (g *Bidirectional) Contains(fn string) bool { return g.fwd.Contains(fn) }

func (g *Bidirectional) Fns() []string { return g.fwd.Fns() }

func (g *Bidirectional) FnsDirectlyAffectedBy(fn string) []string {
	affectedFwd := g.fwd.FnsDirectlyAffectedBy(fn)
	affectedRev := g.rev.FnsDirectlyAffectedBy(fn)
	g.assertAgree(fn, affectedFwd, affectedRev)
	return affectedFwd
}

func (g *Bidirectional) FnsAffectedBy(fn string) []string {
	return fnsAffectedBy(fn, g.FnsDirectlyAffectedBy, func(f string) int {
		return g.fwd.reg.idx(f)
	})
}

// assertAgree panics if the two backing orientations disagree about fn's
// direct callers. A disagreement means one of the two Update
// implementations has a bug; there is no sane way to keep serving queries
// once that invariant is broken.
func (g *Bidirectional) assertAgree(fn string, a, b []string) {
	if same(a, b) {
		return
	}
	panic(fmt.Sprintf("callgraph: bidirectional orientations disagree on direct callers of %q: caller->callee says %v, callee->caller says %v", fn, a, b))
}

func same(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := append([]string(nil), a...), append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
