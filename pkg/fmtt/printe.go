// Package fmtt prints diagnostic dumps of an error chain. It backs VISOR's
// fatal-error path, which dumps to stderr: fatal protocol errors (pipe I/O
// failures, unrecognized verdicts) are rare enough, and opaque enough by
// default, that a reviewer debugging one wants the whole chain plus a
// structural dump of each layer, not just its Error() string.
package fmtt

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// PrintErrChain walks err's Unwrap chain and writes one line per layer, with
// its concrete type, to w.
func PrintErrChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}

	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, e, e)
	}
}

// PrintErrChainDebug is PrintErrChain plus, for each layer, a spew dump of
// the error value, a field-by-field reflection listing, and a note on
// whether it also exposes Unwrap() or the older Cause() convention.
func PrintErrChainDebug(w io.Writer, err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(w, "[%d] %T\n", i, err)
		fmt.Fprintf(w, "   Error(): %v\n", err)

		spew.Fdump(w, err)

		rv := reflect.ValueOf(err)
		rt := reflect.TypeOf(err)
		if rt.Kind() == reflect.Ptr {
			rv = rv.Elem()
			rt = rt.Elem()
		}
		if rt.Kind() == reflect.Struct {
			for j := 0; j < rt.NumField(); j++ {
				f := rt.Field(j)
				v := rv.Field(j)
				if v.CanInterface() {
					fmt.Fprintf(w, "   Field %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}

		if u, ok := err.(interface{ Unwrap() error }); ok {
			fmt.Fprintf(w, "   Has Unwrap(): %T\n", u.Unwrap())
		}
		if c, ok := err.(interface{ Cause() error }); ok {
			fmt.Fprintf(w, "   Has Cause(): %T\n", c.Cause())
		}

		i++
	}
}
