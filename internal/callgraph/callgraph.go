// Package callgraph maintains a directed graph over function names as
// snippets are committed to the REPL's history.
//
// Functions are assigned insertion-stable indices the first time they are
// declared through Add or Update; a name can only appear as a dependency once
// it is already registered. Indices are never reused, which lets every variant below
// represent edges as small integer adjacency lists instead of repeatedly
// hashing strings.
package callgraph

import "sort"

// Graph is the shared surface of every call-graph orientation. CallerToCallee
// and CalleeToCaller store the same information with the adjacency inverted
// for different query costs; Bidirectional keeps both and cross-checks them.
type Graph interface {
	// Add registers fn if it is not already known, without touching its edges.
	Add(fn string)

	// Update replaces fn's outgoing edges with one per name in deps. It
	// rejects with ErrDepNotInGraph if any dep is not already known to the
	// graph - in that case neither fn nor any edge is registered, even
	// partially. On success it returns the names of functions directly
	// affected by this change: the direct callers of fn, i.e. every known
	// function whose own dependency list names fn.
	Update(fn string, deps []string) ([]string, error)

	// Delete removes fn and every edge that mentions it, from either side.
	// It rejects with ErrFnNotInGraph if fn is not known to the graph.
	Delete(fn string) error

	// Contains reports whether fn has been registered.
	Contains(fn string) bool

	// Fns returns every known function name in insertion order.
	Fns() []string

	// FnsDirectlyAffectedBy returns the direct callers of fn: every known
	// function whose dependency list currently names fn.
	FnsDirectlyAffectedBy(fn string) []string

	// FnsAffectedBy returns the full transitive closure of callers of fn:
	// fn's direct callers, their direct callers, and so on, computed purely
	// from repeated application of FnsDirectlyAffectedBy. The result is
	// ordered by insertion index and never includes fn itself.
	FnsAffectedBy(fn string) []string
}

var (
	_ Graph = (*callerToCallee)(nil)
	_ Graph = (*calleeToCaller)(nil)
	_ Graph = (*Bidirectional)(nil)
)

// registry is the insertion-stable name<->index table shared by every
// variant. It is not itself a Graph; each variant embeds one and adds its
// own edge storage and query semantics on top.
type registry struct {
	names []string
	index map[string]int
}

func newRegistry() *registry {
	return &registry{index: make(map[string]int)}
}

// ensure returns fn's index, registering it if new.
func (r *registry) ensure(fn string) int {
	if i, ok := r.index[fn]; ok {
		return i
	}
	i := len(r.names)
	r.names = append(r.names, fn)
	r.index[fn] = i
	return i
}

func (r *registry) contains(fn string) bool {
	_, ok := r.index[fn]
	return ok
}

// idx returns fn's registry index. Callers must only pass known names.
func (r *registry) idx(fn string) int { return r.index[fn] }

func (r *registry) fns() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// fnsAffectedBy runs the shared fixed-point closure over whatever a
// variant's FnsDirectlyAffectedBy reports, so every orientation gets
// identical closure semantics from one implementation. The result is
// ordered by indexOf, the registry's insertion-stable index, not by BFS
// discovery order.
func fnsAffectedBy(fn string, direct func(string) []string, indexOf func(string) int) []string {
	visited := make(map[string]struct{})
	frontier := []string{fn}

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for _, caller := range direct(f) {
				if caller == fn {
					continue
				}
				if _, ok := visited[caller]; ok {
					continue
				}
				visited[caller] = struct{}{}
				next = append(next, caller)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for f := range visited {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return indexOf(out[i]) < indexOf(out[j]) })
	return out
}
