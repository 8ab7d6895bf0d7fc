package choreography

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/rustxi-go/rustxi/internal/compile"
)

// lengthPrefixedReader reads the "<decimal length>\n<payload bytes>" frames
// writeReplayList emits. A length prefix (rather than a newline-delimited
// format) is used because committed snippet text may itself contain
// newlines.
type lengthPrefixedReader struct {
	br *bufio.Reader
}

func newLengthPrefixedReader(r io.Reader) *lengthPrefixedReader {
	return &lengthPrefixedReader{br: bufio.NewReader(r)}
}

func (l *lengthPrefixedReader) next() (entry string, ok bool, err error) {
	lenLine, err := l.br.ReadString('\n')
	if err == io.EOF && lenLine == "" {
		return "", false, nil
	}
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("choreography: reading replay frame length: %w", err)
	}
	n, perr := strconv.Atoi(trimNewline(lenLine))
	if perr != nil {
		return "", false, fmt.Errorf("choreography: malformed replay frame length %q: %w", lenLine, perr)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.br, buf); err != nil {
		return "", false, fmt.Errorf("choreography: reading replay frame payload: %w", err)
	}
	return string(buf), true, nil
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}

// replayFatalErr distinguishes a broken commit-state replay from an
// ordinary candidate-snippet failure. It is the one case this REPL treats as
// a protocol breakdown rather than a recoverable, printable user error: a
// previously-committed snippet is supposed to still run cleanly, since
// nothing about the committed state changed between the commit and now.
type replayFatalErr struct {
	index int
	code  string
	err   error
}

func (e *replayFatalErr) Error() string {
	return fmt.Sprintf("replay: committed snippet #%d failed to reapply: %v", e.index, e.err)
}

func (e *replayFatalErr) Unwrap() error { return e.err }

// replayCommitted reapplies every already-committed snippet, in commit
// order, through runner before a freshly started process accepts a new
// candidate. This is the Go-native stand-in for the copy-on-write memory a
// forked child would otherwise have inherited for free.
func replayCommitted(log *zap.Logger, runner compile.Runner, committed []string) error {
	for i, code := range committed {
		if err := runner.Run(code); err != nil {
			return &replayFatalErr{index: i, code: code, err: err}
		}
	}
	log.Debug("replay complete", zap.Int("committed_count", len(committed)))
	return nil
}
