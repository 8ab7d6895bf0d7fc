package choreography

import (
	"os"
	"testing"
)

// osPipe is a small wrapper around os.Pipe so tests read naturally without
// repeating the error-handling boilerplate at every call site.
func osPipe(t *testing.T) (*os.File, *os.File, error) {
	t.Helper()
	r, w, err := os.Pipe()
	return r, w, err
}
