package choreography

import (
	"fmt"
	"os"
	"os/exec"
)

// RoleFlag is the hidden flag cmd/rustxi parses before anything else to pick
// which of the three role loops a process invocation runs.
const RoleFlag = "-rustxi-role"

// spawnTry re-execs the running binary as a new TRY process, handing it the
// long-lived code/reply pipes plus a fresh, one-shot replay pipe. Deliberate
// omission: unlike the teacher's own processmgr package,
// SysProcAttr.Pdeathsig is NOT set here (nor in SpawnFirstCur). A successful TRY is expected to
// outlive the CUR that forked it - that process IS the next CUR - so a
// parent-death signal would kill the one child that is supposed to survive
// its parent's deliberate termination.
func spawnTry(env Env, replayRead *os.File) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("choreography: resolving self executable: %w", err)
	}

	cmd := exec.Command(exe, RoleFlag+"=try")
	cmd.ExtraFiles = []*os.File{env.CodeRead, env.ReplyWrite, replayRead}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// SysProcAttr.Setpgid is deliberately left unset: the child stays in the
	// caller's process group, which is what lets VISOR's termination path
	// reach every live descendant with one process-group-wide SIGTERM.

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("choreography: spawning try: %w", err)
	}
	return cmd, nil
}

// SpawnFirstCur re-execs the running binary as the first CUR process. VISOR
// calls this exactly once, at session start, with codeRead/replyWrite being
// the ends of the long-lived pipes it intends to keep handing down to every
// future CUR/TRY. committed is normally empty (a brand new session) but is
// accepted for generality/testing.
func SpawnFirstCur(codeRead, replyWrite *os.File, committed []string) (pid int, err error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("choreography: resolving self executable: %w", err)
	}

	replayR, replayW, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("choreography: creating bootstrap replay pipe: %w", err)
	}
	go writeReplayList(replayW, committed)

	cmd := exec.Command(exe, RoleFlag+"=cur")
	cmd.ExtraFiles = []*os.File{codeRead, replyWrite, replayR}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		replayR.Close()
		return 0, fmt.Errorf("choreography: spawning first cur: %w", err)
	}
	replayR.Close()
	return cmd.Process.Pid, nil
}
