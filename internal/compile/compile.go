// Package compile defines the boundary between the REPL's process
// choreography and whatever actually turns a snippet's source text into
// running code.
//
// Every CUR/TRY process replays the committed history and then attempts the
// candidate snippet through a single Runner. The REPL itself never compiles
// anything; it only observes whether Run returned an error, and relies on
// the operating system to undo everything else a failed attempt did by
// discarding the TRY process that ran it.
package compile

import (
	"fmt"
	"os"
)

// Runner turns one snippet's source text into running code and reports
// whether it succeeded. It is called once per snippet, in process order,
// first for every already-committed snippet during replay and then for the
// new candidate.
type Runner interface {
	Run(code string) error
}

// Stub is a placeholder Runner standing in for the real compiler this
// project does not ship. Its verdict is a deterministic function of the
// calling process's pid, which is enough to exercise both the commit and
// rollback paths end to end without an actual toolchain.
//
// This mirrors the placeholder in the Rust original this REPL was ported
// from, which used the same parity check. A real Runner would shell out to
// (or embed) a compiler and run the resulting artifact in-process or as a
// child.
type Stub struct{}

// Run reports failure when the calling process's pid is even, and success
// otherwise. The code itself is never inspected.
func (Stub) Run(code string) error {
	if os.Getpid()%2 == 0 {
		return fmt.Errorf("compile: stub runner rejected snippet (pid %d is even)", os.Getpid())
	}
	return nil
}

var _ Runner = Stub{}
