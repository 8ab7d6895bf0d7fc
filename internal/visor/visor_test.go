package visor

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rustxi-go/rustxi/internal/callgraph"
	"github.com/rustxi-go/rustxi/internal/choreography"
)

// newTestVisor builds a Visor whose code/reply pipes are plain os.Pipe
// ends, bypassing New (and the real CUR/TRY process it would spawn) so
// submit's bookkeeping can be exercised against a scripted fake CUR.
func newTestVisor(t *testing.T) (v *Visor, fakeCodeRead *os.File, fakeReplyWrite *os.File, out *bytes.Buffer) {
	t.Helper()

	codeR, codeW, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating code pipe: %v", err)
	}
	replyR, replyW, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating reply pipe: %v", err)
	}
	t.Cleanup(func() {
		codeR.Close()
		codeW.Close()
		replyR.Close()
		replyW.Close()
	})

	out = &bytes.Buffer{}
	v = &Visor{
		log:       zap.NewNop(),
		in:        bufio.NewReader(strings.NewReader("")),
		out:       out,
		graph:     callgraph.NewBidirectional(),
		codeWrite: codeW,
		replyRead: replyR,
	}
	return v, codeR, replyW, out
}

// fakeRound reads exactly one candidate off codeRead and writes success (or
// failure) to replyWrite, standing in for a real CUR/TRY round trip.
func fakeRound(t *testing.T, codeRead *os.File, replyWrite *os.File, success bool) string {
	t.Helper()
	code, ok, err := choreography.ReadCode(codeRead)
	if err != nil {
		t.Fatalf("fakeRound: ReadCode: %v", err)
	}
	if !ok {
		t.Fatalf("fakeRound: ReadCode: ok = false, want true")
	}
	if err := choreography.WriteReply(replyWrite, success); err != nil {
		t.Fatalf("fakeRound: WriteReply: %v", err)
	}
	return code
}

func TestSubmitCommitted(t *testing.T) {
	v, codeRead, replyWrite, out := newTestVisor(t)

	done := make(chan string, 1)
	go func() { done <- fakeRound(t, codeRead, replyWrite, true) }()

	v.submit("render: \nfn render() {}")

	if got := <-done; got != "render: \nfn render() {}" {
		t.Fatalf("cur observed code %q, want the submitted snippet", got)
	}

	hist := v.HistorySnapshot()
	if len(hist) != 1 || hist[0].Verdict != Committed {
		t.Fatalf("HistorySnapshot() = %+v, want one Committed entry", hist)
	}
	if got := v.CommittedSnapshot(); len(got) != 1 {
		t.Fatalf("CommittedSnapshot() = %v, want one entry", got)
	}

	fns := v.Fns()
	if len(fns) != 1 || fns[0] != "render" {
		t.Fatalf("Fns() = %v, want [render]", fns)
	}

	if !strings.Contains(out.String(), "committed: render") {
		t.Fatalf("output = %q, want it to contain %q", out.String(), "committed: render")
	}
}

func TestSubmitRejected(t *testing.T) {
	v, codeRead, replyWrite, out := newTestVisor(t)

	go fakeRound(t, codeRead, replyWrite, false)

	v.submit("broken: \nfn broken() { syntax error")

	hist := v.HistorySnapshot()
	if len(hist) != 1 || hist[0].Verdict != Failed {
		t.Fatalf("HistorySnapshot() = %+v, want one Failed entry", hist)
	}
	if got := v.CommittedSnapshot(); len(got) != 0 {
		t.Fatalf("CommittedSnapshot() = %v, want empty", got)
	}
	if !strings.Contains(out.String(), "rejected: broken") {
		t.Fatalf("output = %q, want it to contain %q", out.String(), "rejected: broken")
	}
}

func TestSubmitForwardsNonDeclarationLineAndRecordsHistory(t *testing.T) {
	v, codeRead, replyWrite, out := newTestVisor(t)

	// A line with no "name: deps" shape still reaches TRY unconditionally:
	// only a function declaration's shape matters to the call graph, never
	// to whether the line is even attempted.
	done := make(chan string, 1)
	go func() { done <- fakeRound(t, codeRead, replyWrite, true) }()

	v.submit("this has no colon separator")

	if got := <-done; got != "this has no colon separator" {
		t.Fatalf("cur observed code %q, want the submitted line forwarded verbatim", got)
	}

	hist := v.HistorySnapshot()
	if len(hist) != 1 || hist[0].Verdict != Committed || hist[0].Code != "this has no colon separator" {
		t.Fatalf("HistorySnapshot() = %+v, want one Committed entry for the forwarded line", hist)
	}
	if len(v.Fns()) != 0 {
		t.Fatalf("Fns() = %v, want empty: a non-declaration line must not touch the call graph", v.Fns())
	}
	if !strings.Contains(out.String(), "committed:") {
		t.Fatalf("output = %q, want a commit message", out.String())
	}
}

func TestSubmitCallgraphReportsAffected(t *testing.T) {
	v, codeRead, replyWrite, out := newTestVisor(t)

	// "a" has no callers yet, so its own commit reports nothing affected.
	go fakeRound(t, codeRead, replyWrite, true)
	v.submit("a: \nfn a() {}")

	// "b" calls "a"; committing b doesn't change who calls b (nobody does).
	go fakeRound(t, codeRead, replyWrite, true)
	v.submit("b: a\nfn b() { a(); }")

	if affected := v.FnsAffectedBy("a"); len(affected) != 1 || affected[0] != "b" {
		t.Fatalf("FnsAffectedBy(a) = %v, want [b]", affected)
	}

	// Redefining "a" now has a caller to report: b depends on it.
	out.Reset()
	go fakeRound(t, codeRead, replyWrite, true)
	v.submit("a: \nfn a() { /* v2 */ }")

	if !strings.Contains(out.String(), "affected: [b]") {
		t.Fatalf("output = %q, want it to report b as affected by redefining a", out.String())
	}
}

func TestPrintHistoryCommittedOnly(t *testing.T) {
	v, codeRead, replyWrite, out := newTestVisor(t)

	go fakeRound(t, codeRead, replyWrite, true)
	v.submit("a: \nfn a() {}")
	go fakeRound(t, codeRead, replyWrite, false)
	v.submit("bad: \nfn bad( {}")

	out.Reset()
	v.printHistory(true)
	if strings.Contains(out.String(), "bad") {
		t.Fatalf("printHistory(true) printed a failed entry: %q", out.String())
	}
	if !strings.Contains(out.String(), "a: ") {
		t.Fatalf("printHistory(true) = %q, want it to contain the committed snippet", out.String())
	}

	out.Reset()
	v.printHistory(false)
	if !strings.Contains(out.String(), "//not:") {
		t.Fatalf("printHistory(false) = %q, want the failed entry marked //not:", out.String())
	}
}
