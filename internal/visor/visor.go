// Package visor implements the persistent front end of the REPL: the one
// process that owns stdin, the append-only command history, and the call
// graph. It drives internal/choreography's CUR/TRY lineage from the outside
// by writing candidate snippets down the code-pipe and reading verdicts off
// the reply-pipe.
package visor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/rustxi-go/rustxi/internal/callgraph"
	"github.com/rustxi-go/rustxi/internal/choreography"
	"github.com/rustxi-go/rustxi/internal/snippet"
	"github.com/rustxi-go/rustxi/pkg/fmtt"
)

// Visor is the session-long REPL front end.
type Visor struct {
	log     *zap.Logger
	in      *bufio.Reader
	out     io.Writer
	history CommandHistory
	diag    diagnosticLog
	graph   callgraph.Graph

	codeWrite *os.File
	replyRead *os.File

	// onVerdict, if set, is called after every round with the snippet and
	// its outcome. internal/events wires this to optional Redis telemetry.
	onVerdict func(code string, committed bool)
}

// New constructs a Visor and spawns the first CUR. The returned Visor is
// ready to run its main loop via Run.
func New(log *zap.Logger, in io.Reader, out io.Writer, onVerdict func(code string, committed bool)) (*Visor, error) {
	var codeFDs, replyFDs [2]int
	if err := unix.Pipe2(codeFDs[:], 0); err != nil {
		return nil, fmt.Errorf("visor: creating code-pipe: %w", err)
	}
	if err := unix.Pipe2(replyFDs[:], 0); err != nil {
		return nil, fmt.Errorf("visor: creating reply-pipe: %w", err)
	}

	codeRead := os.NewFile(uintptr(codeFDs[0]), "rustxi-code-pipe-r")
	codeWrite := os.NewFile(uintptr(codeFDs[1]), "rustxi-code-pipe-w")
	replyRead := os.NewFile(uintptr(replyFDs[0]), "rustxi-reply-pipe-r")
	replyWrite := os.NewFile(uintptr(replyFDs[1]), "rustxi-reply-pipe-w")

	pid, err := choreography.SpawnFirstCur(codeRead, replyWrite, nil)
	if err != nil {
		return nil, fmt.Errorf("visor: spawning first cur: %w", err)
	}
	// These fds now live on in the child; VISOR's own copies of the ends it
	// does not own are no longer needed.
	codeRead.Close()
	replyWrite.Close()

	log.Debug("visor started first cur", zap.Int("cur_pid", pid), zap.Int("visor_pid", os.Getpid()), zap.Int("pgrp", unix.Getpgrp()))

	return &Visor{
		log:       log,
		in:        bufio.NewReader(in),
		out:       out,
		graph:     callgraph.NewBidirectional(),
		codeWrite: codeWrite,
		replyRead: replyRead,
		onVerdict: onVerdict,
	}, nil
}

// Run executes the session loop until `.q`, Ctrl-D, or a fatal protocol
// error. On a fatal protocol error it exits the process directly via
// os.Exit; after a clean shutdown it returns nil; if reading stdin fails it
// returns that error.
func (v *Visor) Run() error {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	go func() {
		for range sigint {
			fmt.Fprintln(v.out)
			fmt.Fprint(v.out, prompt)
		}
	}()
	defer signal.Stop(sigint)

	fmt.Fprintln(v.out, banner)

	for {
		v.reapZombies()
		fmt.Fprint(v.out, prompt)

		line, err := v.in.ReadString('\n')
		line = trimEOL(line)
		if err == io.EOF {
			v.shutdown()
			return nil
		}
		if err != nil {
			return fmt.Errorf("visor: reading stdin: %w", err)
		}

		switch classify(line) {
		case metaEmpty:
			continue
		case metaHelp:
			fmt.Fprint(v.out, helpText)
			if recent := v.diag.Read(10); len(recent) > 0 {
				fmt.Fprintln(v.out, "recent:")
				for _, r := range recent {
					fmt.Fprintf(v.out, "  %s\n", r)
				}
			}
		case metaHistory:
			v.printHistory(false)
		case metaCommitted:
			v.printHistory(true)
		case metaReservedS, metaReservedDotDot:
			fmt.Fprintln(v.out, "TODO")
		case metaQuit:
			v.shutdown()
			return nil
		default:
			v.submit(line)
		}
	}
}

// HistorySnapshot returns every submitted snippet, oldest first. Safe for
// concurrent use while the session is running.
func (v *Visor) HistorySnapshot() []Entry { return v.history.All() }

// CommittedSnapshot returns only committed snippet source, in commit order.
func (v *Visor) CommittedSnapshot() []string { return v.history.Committed() }

// Fns returns every function name currently known to the call graph.
func (v *Visor) Fns() []string { return v.graph.Fns() }

// FnsAffectedBy returns the transitive closure of callers of fn.
func (v *Visor) FnsAffectedBy(fn string) []string { return v.graph.FnsAffectedBy(fn) }

// DiagLog returns up to n recent diagnostic lines, newest first.
func (v *Visor) DiagLog(n int) []string { return v.diag.Read(n) }

// submit forwards raw unconditionally to TRY and records the verdict in
// history before anything else is attempted: the snippet's shape (whether
// it even looks like a function declaration) has no bearing on whether it
// gets run, only on whether the call-graph gets updated afterward.
func (v *Visor) submit(raw string) {
	if err := choreography.WriteCode(v.codeWrite, raw); err != nil {
		v.fatal("writing code-pipe", err)
	}

	success, err := choreography.ReadReply(v.replyRead)
	if err != nil {
		v.fatal("reading reply-pipe", err)
	}

	// Parsing is only ever used to label output and, on commit, to update
	// the call graph - it never gates whether raw gets written or recorded.
	s, perr := snippet.Parse(raw)
	label := firstLine(raw)
	if perr == nil {
		label = s.Name
	}

	if !success {
		v.history.Append(raw, Failed)
		v.diag.Append(fmt.Sprintf("rejected %s", label))
		fmt.Fprintf(v.out, "rejected: %s\n", label)
		if v.onVerdict != nil {
			v.onVerdict(raw, false)
		}
		return
	}

	v.history.Append(raw, Committed)
	fmt.Fprintf(v.out, "committed: %s\n", label)

	// Only a snippet that parses as a function declaration (name: deps)
	// touches the call graph. Ordinary committed snippets that don't
	// declare anything simply have no effect on it.
	if perr == nil {
		_, gerr := v.graph.Update(s.Name, s.Deps)
		if gerr != nil {
			v.diag.Append(fmt.Sprintf("committed %s; call-graph: %v", s.Name, gerr))
			fmt.Fprintf(v.out, "%v\n", gerr)
		} else {
			v.diag.Append(fmt.Sprintf("committed %s", s.Name))
			if affected := v.graph.FnsAffectedBy(s.Name); len(affected) > 0 {
				fmt.Fprintf(v.out, "affected: %v\n", affected)
			}
		}
	} else {
		v.diag.Append(fmt.Sprintf("committed %s", label))
	}

	if v.onVerdict != nil {
		v.onVerdict(raw, true)
	}
}

func (v *Visor) printHistory(committedOnly bool) {
	for _, e := range v.history.All() {
		if committedOnly && e.Verdict != Committed {
			continue
		}
		if e.Verdict == Failed {
			fmt.Fprintf(v.out, "//not: %s\n", firstLine(e.Code))
		} else {
			fmt.Fprintln(v.out, firstLine(e.Code))
		}
	}
}

// reapZombies opportunistically reaps any child that has already exited,
// without blocking. VISOR's only direct child is the first CUR it spawned;
// every later CUR/TRY descends from that process, not from VISOR. This
// mainly cleans up that first CUR once a successful TRY has terminated it.
func (v *Visor) reapZombies() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
	}
}

// shutdown closes the pipe ends VISOR owns and broadcasts SIGTERM to the
// entire process group, reaching every live CUR/TRY regardless of how deep
// the self-re-exec lineage has grown, since none of them call Setpgid.
func (v *Visor) shutdown() {
	_ = v.codeWrite.Close()
	_ = v.replyRead.Close()
	if err := unix.Kill(0, unix.SIGTERM); err != nil {
		v.log.Warn("visor: broadcasting shutdown SIGTERM failed", zap.Error(err))
	}
}

func (v *Visor) fatal(step string, err error) {
	v.log.Error("visor: fatal protocol error", zap.String("step", step), zap.Error(err))
	fmtt.PrintErrChainDebug(os.Stderr, err)
	v.shutdown()
	os.Exit(1)
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
