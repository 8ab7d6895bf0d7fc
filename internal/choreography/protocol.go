package choreography

import (
	"fmt"
	"io"
	"os"
)

// Wire protocol constants, unchanged from the distilled spec.
const (
	maxCodeBytes  = 4096 // code-pipe: VISOR -> TRY, truncated not zero-padded
	maxReplyBytes = 32   // reply-pipe: TRY/CUR -> VISOR, ASCII, no framing

	replySuccess = "success"
	replyFailed  = "failed"
)

// WriteCode writes code to the code-pipe, truncating to maxCodeBytes. It
// never pads short writes; ReadCode takes the snippet from a single Read of
// the pipe, so the byte count it sees is the length of this one write.
func WriteCode(w io.Writer, code string) error {
	if len(code) > maxCodeBytes {
		code = code[:maxCodeBytes]
	}
	_, err := io.WriteString(w, code)
	return err
}

// ReadCode reads one snippet off the code-pipe. A single Read call is used
// deliberately, not io.ReadFull: VISOR writes one short snippet per round
// and never closes the pipe between rounds, so a real pipe fd returns as
// soon as that one write's bytes are available and then blocks again -
// io.ReadFull would keep looping past that short read, waiting for a
// second write that never comes in the same round, and deadlock. Bytes
// beyond what this single Read returns are truncated, not padded, matching
// the "truncate to bytes_read" rule for a short line. A zero-byte read
// (immediate EOF) is reported via ok=false, which the caller treats as
// VISOR closing the pipe rather than as a protocol error.
func ReadCode(r io.Reader) (code string, ok bool, err error) {
	buf := make([]byte, maxCodeBytes)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	return string(buf[:n]), true, nil
}

// WriteReply writes a fixed verdict string to the reply-pipe.
func WriteReply(w io.Writer, success bool) error {
	verdict := replyFailed
	if success {
		verdict = replySuccess
	}
	_, err := io.WriteString(w, verdict)
	return err
}

// ReadReply reads and validates a verdict off the reply-pipe. An unrecognized
// verdict is a fatal protocol error per the error handling design: VISOR
// must never silently treat garbage as a verdict. Like ReadCode it uses a
// single Read, since the reply-pipe stays open between rounds.
func ReadReply(r io.Reader) (success bool, err error) {
	buf := make([]byte, maxReplyBytes)
	n, err := r.Read(buf)
	if err != nil && (err != io.EOF || n == 0) {
		return false, fmt.Errorf("choreography: reading reply-pipe: %w", err)
	}
	switch string(buf[:n]) {
	case replySuccess:
		return true, nil
	case replyFailed:
		return false, nil
	default:
		return false, fmt.Errorf("choreography: unrecognized verdict %q on reply-pipe", string(buf[:n]))
	}
}

// writeReplayList serializes the committed snippet source texts as a
// length-prefixed stream on w, closing w when done. It always runs in its
// own goroutine on the spawning side so a full pipe buffer never deadlocks
// the spawn.
func writeReplayList(w *os.File, committed []string) {
	defer w.Close()
	for _, code := range committed {
		fmt.Fprintf(w, "%d\n%s", len(code), code)
	}
}

// readReplayList parses the stream written by writeReplayList: the ordered
// history a freshly started CUR/TRY must reapply before it touches anything
// of its own.
func readReplayList(r io.Reader) (committed []string, err error) {
	br := newLengthPrefixedReader(r)
	for {
		entry, ok, rerr := br.next()
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			return committed, nil
		}
		committed = append(committed, entry)
	}
}
