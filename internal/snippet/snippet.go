// Package snippet parses the declaration line of a submitted code snippet.
//
// A snippet's first line has the form:
//
//	name: dep1, dep2, dep3
//
// everything up to the first ": " is the function name being defined;
// everything after it, up to the end of line, is a comma-separated
// dependency list (the functions this one calls). The remainder of the
// snippet (if any) is opaque source text handed to compile_and_run
// unexamined.
package snippet

import (
	"fmt"
	"strings"
)

// Snippet is one candidate unit of code submitted to the REPL.
type Snippet struct {
	Name string   // function name being (re)defined
	Deps []string // names this function calls, in declared order, deduplicated
	Code string   // full raw text as submitted, including the declaration line
}

// Parse splits raw on its declaration line and returns the parsed Snippet.
//
// Parse fails if raw has no ": " separator, or the name portion is empty
// after trimming whitespace.
func Parse(raw string) (Snippet, error) {
	sep := strings.Index(raw, ": ")
	if sep < 0 {
		return Snippet{}, fmt.Errorf("snippet: missing %q separator in declaration line", ": ")
	}

	name := strings.TrimSpace(raw[:sep])
	if name == "" {
		return Snippet{}, fmt.Errorf("snippet: empty function name")
	}

	declLine := raw[sep+2:]
	if nl := strings.IndexByte(declLine, '\n'); nl >= 0 {
		declLine = declLine[:nl]
	}

	var deps []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(declLine, ",") {
		dep := strings.TrimSpace(part)
		if dep == "" {
			continue
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}

	return Snippet{Name: name, Deps: deps, Code: raw}, nil
}
