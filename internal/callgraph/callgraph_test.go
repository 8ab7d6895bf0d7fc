package callgraph

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func variants() map[string]func() Graph {
	return map[string]func() Graph{
		"CallerToCallee": NewCallerToCallee,
		"CalleeToCaller": NewCalleeToCaller,
		"Bidirectional":  func() Graph { return NewBidirectional() },
	}
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func mustUpdate(t *testing.T, g Graph, fn string, deps []string) []string {
	t.Helper()
	affected, err := g.Update(fn, deps)
	if err != nil {
		t.Fatalf("Update(%q, %v): %v", fn, deps, err)
	}
	return affected
}

func TestUpdateReturnsDirectCallers(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()

			// b must exist before anything can declare it as a dependency.
			mustUpdate(t, g, "b", nil)

			// a calls b. b has no callers yet.
			mustUpdate(t, g, "a", []string{"b"})
			if got := g.FnsDirectlyAffectedBy("b"); !reflect.DeepEqual(sortedCopy(got), []string{"a"}) {
				t.Fatalf("FnsDirectlyAffectedBy(b) = %v, want [a]", got)
			}

			// c also calls b; redefining b now reports both of its callers.
			mustUpdate(t, g, "c", []string{"b"})
			affected := mustUpdate(t, g, "b", nil)
			if !reflect.DeepEqual(sortedCopy(affected), []string{"a", "c"}) {
				t.Fatalf("Update(b) returned %v, want [a c]", affected)
			}
		})
	}
}

func TestUpdateReplacesOutgoingEdges(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			mustUpdate(t, g, "b", nil)
			mustUpdate(t, g, "c", nil)
			mustUpdate(t, g, "a", []string{"b"})
			mustUpdate(t, g, "a", []string{"c"}) // a no longer calls b

			if got := g.FnsDirectlyAffectedBy("b"); len(got) != 0 {
				t.Fatalf("FnsDirectlyAffectedBy(b) = %v, want empty after rebind", got)
			}
			if got := g.FnsDirectlyAffectedBy("c"); !reflect.DeepEqual(got, []string{"a"}) {
				t.Fatalf("FnsDirectlyAffectedBy(c) = %v, want [a]", got)
			}
		})
	}
}

func TestFnsAffectedByIsTransitiveClosure(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			// chain: c -> b -> a  (c calls b, b calls a)
			mustUpdate(t, g, "a", nil)
			mustUpdate(t, g, "b", []string{"a"})
			mustUpdate(t, g, "c", []string{"b"})

			got := sortedCopy(g.FnsAffectedBy("a"))
			want := []string{"b", "c"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("FnsAffectedBy(a) = %v, want %v", got, want)
			}
		})
	}
}

func TestFnsAffectedByExcludesSeedAndStopsOnUnknown(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			mustUpdate(t, g, "a", nil)
			mustUpdate(t, g, "a", []string{"a"}) // self-dep should not self-loop-crash closure
			if got := g.FnsAffectedBy("a"); len(got) != 0 {
				t.Fatalf("FnsAffectedBy(a) = %v, want empty (seed excluded)", got)
			}
			if got := g.FnsAffectedBy("nonexistent"); len(got) != 0 {
				t.Fatalf("FnsAffectedBy(nonexistent) = %v, want empty", got)
			}
		})
	}
}

func TestUpdateRejectsUnknownDependencyName(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			affected, err := g.Update("a", []string{"never-defined"})
			if err == nil {
				t.Fatalf("Update with unknown dependency = nil error, want error")
			}
			if !errors.Is(err, ErrDepNotInGraph) {
				t.Fatalf("Update with unknown dependency: err = %v, want wrapping ErrDepNotInGraph", err)
			}
			if affected != nil {
				t.Fatalf("Update with unknown dependency returned affected = %v, want nil", affected)
			}
			if g.Contains("a") {
				t.Fatalf("a should not be registered: a rejected update must not partially mutate the graph")
			}
			if g.Contains("never-defined") {
				t.Fatalf("unknown dependency name should not be registered")
			}
		})
	}
}

func TestDeleteRejectsUnknownFn(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			err := g.Delete("never-defined")
			if err == nil {
				t.Fatalf("Delete on unknown fn = nil error, want error")
			}
			if !errors.Is(err, ErrFnNotInGraph) {
				t.Fatalf("Delete on unknown fn: err = %v, want wrapping ErrFnNotInGraph", err)
			}
		})
	}
}

func TestDeleteRemovesFnAndEdges(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			mustUpdate(t, g, "b", nil)
			mustUpdate(t, g, "a", []string{"b"})
			if err := g.Delete("a"); err != nil {
				t.Fatalf("Delete(a): %v", err)
			}

			if g.Contains("a") {
				t.Fatalf("Contains(a) = true after Delete")
			}
			if got := g.FnsDirectlyAffectedBy("b"); len(got) != 0 {
				t.Fatalf("FnsDirectlyAffectedBy(b) = %v, want empty after deleting its only caller", got)
			}
		})
	}
}

func TestFnsPreservesInsertionOrder(t *testing.T) {
	for name, newGraph := range variants() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			mustUpdate(t, g, "a", nil)
			mustUpdate(t, g, "z", []string{"a"})
			mustUpdate(t, g, "m", []string{"a"})

			want := []string{"a", "z", "m"}
			if got := g.Fns(); !reflect.DeepEqual(got, want) {
				t.Fatalf("Fns() = %v, want %v", got, want)
			}
		})
	}
}

func TestBidirectionalAgreementNeverPanicsUnderNormalUse(t *testing.T) {
	g := NewBidirectional()
	mustUpdate(t, g, "b", nil)
	mustUpdate(t, g, "c", nil)
	mustUpdate(t, g, "a", []string{"b", "c"})
	mustUpdate(t, g, "b", []string{"c"})
	if err := g.Delete("b"); err != nil {
		t.Fatalf("Delete(b): %v", err)
	}
	_ = g.FnsAffectedBy("c")
}
