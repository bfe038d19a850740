// Package prompt implements the terminal confirmation asked before dispatch.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/trainmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.Confirmer = (*Terminal)(nil)

// Terminal asks on Out and reads the answer from In.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Confirm returns true for "y" or "yes" (case-insensitive). End of input
// counts as a decline.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(t.Out, "%s (y/n): ", prompt)
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Interactive reports whether f is attached to a terminal.
func Interactive(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Resolve returns the Confirmer for a run: always-yes when skip is set or
// stdin is not interactive, the terminal prompt otherwise.
func Resolve(skip bool, in *os.File, out io.Writer) core.Confirmer {
	if skip || !Interactive(in) {
		return core.ConfirmFunc(func(string) (bool, error) { return true, nil })
	}
	return &Terminal{In: in, Out: out}
}
