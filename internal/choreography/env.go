// Package choreography implements the CUR/TRY half of the REPL: the
// self-re-exec dance that stands in for fork-copy-on-write rollback, the
// wire protocol over the inherited pipes, and the commit-state replay that
// makes a freshly started process behave as if it had inherited its
// predecessor's memory.
//
// VISOR (internal/visor) drives this package from the outside: it owns the
// pipes and spawns the very first CUR. Everything from there on - CUR
// forking TRY, TRY succeeding and continuing on as the next CUR, or TRY
// failing and CUR spawning a replacement - happens inside RunCur/RunTry.
package choreography

import (
	"os"

	"go.uber.org/zap"

	"github.com/rustxi-go/rustxi/internal/compile"
)

// Well-known fd slots for files handed down via exec.Cmd.ExtraFiles. Every
// re-exec in the CUR/TRY lineage reconstructs these from fixed descriptor
// numbers rather than passing them by name, since a re-exec'd process has no
// other way to recover file handles from its parent.
const (
	fdCodeRead   = 3 // VISOR -> current TRY: next candidate snippet
	fdReplyWrite = 4 // TRY/CUR -> VISOR: "success" or "failed"
	fdReplayRead = 5 // spawning CUR -> new TRY: committed history to replay
)

// Env bundles the two long-lived pipe ends that are threaded through every
// re-exec in the CUR/TRY lineage. ReplayRead is deliberately not part of Env:
// it is created fresh by whichever process is currently forking a TRY, and
// consumed exactly once by that TRY.
type Env struct {
	CodeRead   *os.File
	ReplyWrite *os.File
	Runner     compile.Runner
	Log        *zap.Logger
}

// InheritEnv reconstructs Env from the fixed fd slots a re-exec'd CUR/TRY
// process receives via ExtraFiles.
func InheritEnv(runner compile.Runner, log *zap.Logger) Env {
	return Env{
		CodeRead:   os.NewFile(fdCodeRead, "rustxi-code-pipe"),
		ReplyWrite: os.NewFile(fdReplyWrite, "rustxi-reply-pipe"),
		Runner:     runner,
		Log:        log,
	}
}

// inheritReplayRead reconstructs the one-shot replay fd a freshly spawned
// CUR/TRY receives from its parent. It does not check that fd 5 is open: if
// the fd was not passed, reading from the returned file fails, and the
// caller reports that as a malformed replay stream.
func inheritReplayRead() *os.File {
	f := os.NewFile(fdReplayRead, "rustxi-replay-pipe")
	return f
}
