package choreography

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// RunCur is the entry point for a process invoked with -rustxi-role=cur.
// It is used only for the very first CUR in a session, spawned directly by
// VISOR; every later CUR comes into being inside a successful RunTry
// instead. It never returns.
func RunCur(env Env) {
	ignoreSigint()

	replayFD := inheritReplayRead()
	committed, err := readReplayList(replayFD)
	replayFD.Close()
	if err != nil {
		env.Log.Error("cur: malformed replay stream at startup", zap.Error(err))
		os.Exit(exitReplayFatal)
	}

	curLoop(env, committed)
}

// curLoop is CUR's steady-state responsibility: fork a TRY for the next
// round, pass it the current committed history, and wait specifically on
// that child's pid. It never returns on the success path - a successful TRY
// kills this very process before curLoop's Wait4 call can return. It does
// not return on the other paths either: after a failed round it loops to
// spawn the next TRY, and on a fatal path the process exits. CUR
// never touches the code-pipe itself; TRY reads its own candidate off it
// after replay, per the original choreography.
func curLoop(env Env, committed []string) {
	log := env.Log
	for {
		replayR, replayW, err := os.Pipe()
		if err != nil {
			log.Error("cur: failed to create replay pipe", zap.Error(err))
			os.Exit(1)
		}
		go writeReplayList(replayW, committed)

		cmd, err := spawnTry(env, replayR)
		replayR.Close()
		if err != nil {
			log.Error("cur: failed to spawn try", zap.Error(err))
			os.Exit(1)
		}

		var ws unix.WaitStatus
		_, err = unix.Wait4(cmd.Process.Pid, &ws, 0, nil)
		if err != nil {
			log.Error("cur: wait4 on try failed", zap.Error(err))
			os.Exit(1)
		}

		if !ws.Exited() {
			// Killed by a signal (e.g. Ctrl-C delivered to TRY): an ordinary
			// failed round, the same as a candidate-failure exit.
			log.Info("cur: try terminated by signal", zap.Int("status", int(ws)))
			if err := WriteReply(env.ReplyWrite, false); err != nil {
				log.Error("cur: failed to write failure verdict", zap.Error(err))
				os.Exit(1)
			}
			continue
		}

		switch ws.ExitStatus() {
		case exitCandidateFailed:
			if err := WriteReply(env.ReplyWrite, false); err != nil {
				log.Error("cur: failed to write failure verdict", zap.Error(err))
				os.Exit(1)
			}
			// Loop: commit state is unchanged, spawn the next TRY.
		case exitReplayFatal:
			log.Error("cur: try reported a replay protocol fault; this cur is no longer trustworthy")
			os.Exit(exitReplayFatal)
		default:
			log.Error("cur: try exited with unexpected status", zap.Int("code", ws.ExitStatus()))
			os.Exit(1)
		}
	}
}
