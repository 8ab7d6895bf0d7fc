package callgraph

import "errors"

// ErrDepNotInGraph is returned by Update when deps names a function not yet
// known to the graph. The update is rejected outright: neither fn nor its
// edge set is registered, even partially.
var ErrDepNotInGraph = errors.New("DEP_NOT_IN_GRAPH")

// ErrFnNotInGraph is returned by Delete when fn is not known to the graph.
var ErrFnNotInGraph = errors.New("FN_NOT_IN_GRAPH")
