package choreography

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Exit codes TRY uses to report its outcome to the CUR that is blocked in
// Wait4 on it. TRY never exits 0 on the success path: a successful TRY
// keeps running and becomes the next CUR instead.
const (
	exitCandidateFailed = 1
	exitReplayFatal     = 2
)

// RunTry is the entry point for a process invoked with -rustxi-role=try. It
// never returns: either the candidate fails and the process exits, or it
// succeeds and the process falls into curLoop to continue on as the new
// CUR.
func RunTry(env Env) {
	resetSigint()

	replayFD := inheritReplayRead()
	committed, err := readReplayList(replayFD)
	replayFD.Close()
	if err != nil {
		env.Log.Error("try: malformed replay stream", zap.Error(err))
		os.Exit(exitReplayFatal)
	}

	if err := replayCommitted(env.Log, env.Runner, committed); err != nil {
		env.Log.Error("try: commit-state replay failed; this indicates a bug in the replay "+
			"mechanism itself, not in the candidate snippet", zap.Error(err))
		os.Exit(exitReplayFatal)
	}

	candidate, ok, err := ReadCode(env.CodeRead)
	if err != nil {
		env.Log.Error("try: reading code-pipe failed", zap.Error(err))
		os.Exit(exitCandidateFailed)
	}
	if !ok {
		env.Log.Debug("try: code-pipe closed (0-byte read), exiting cleanly")
		os.Exit(0)
	}

	if err := env.Runner.Run(candidate); err != nil {
		env.Log.Info("try: candidate rejected", zap.Error(err))
		os.Exit(exitCandidateFailed)
	}

	// Success: this process IS the new CUR from here on. Tear down the old
	// CUR (our parent) and report the verdict ourselves, since the old CUR
	// is about to die without ever observing a normal Wait4 return.
	ignoreSigint()
	ppid := unix.Getppid()
	if err := unix.Kill(ppid, unix.SIGTERM); err != nil {
		env.Log.Warn("try: failed to terminate predecessor cur", zap.Int("ppid", ppid), zap.Error(err))
	}
	if err := WriteReply(env.ReplyWrite, true); err != nil {
		env.Log.Error("try: failed to write success verdict", zap.Error(err))
	}

	nowCommitted := append(append([]string(nil), committed...), candidate)
	env.Log.Debug("try: promoted to cur", zap.Int("committed_count", len(nowCommitted)))
	curLoop(env, nowCommitted)
}
