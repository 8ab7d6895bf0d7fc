package choreography

import (
	"os/signal"
	"syscall"
)

// ignoreSigint makes this process immune to SIGINT. CUR holds this
// disposition throughout its (possibly long) wait on TRY, and a freshly
// exec'd TRY re-adopts it the instant its candidate snippet succeeds (a
// failed TRY simply exits), so that only a live TRY actually attempting user
// code can be interrupted from the terminal.
func ignoreSigint() {
	signal.Ignore(syscall.SIGINT)
}

// resetSigint restores the default, terminating disposition for SIGINT.
// TRY calls this immediately on startup, before reading its candidate off
// the code-pipe, so Ctrl-C kills exactly the process attempting the
// snippet and nothing else in the lineage.
func resetSigint() {
	signal.Reset(syscall.SIGINT)
}
