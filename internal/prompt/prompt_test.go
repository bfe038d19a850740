package prompt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestTerminal_Confirm(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" y ":     true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	} {
		var out bytes.Buffer
		ok, err := (&Terminal{In: strings.NewReader(input), Out: &out}).Confirm("Start parallel training?")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "input %q", input)
		assert.Equal(t, "Start parallel training? (y/n): ", out.String())
	}
}

func TestTerminal_ReadError(t *testing.T) {
	_, err := (&Terminal{In: failingReader{}, Out: &bytes.Buffer{}}).Confirm("go?")
	assert.Error(t, err)
}

func TestResolve_NonInteractive(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, Interactive(f))
	assert.False(t, Interactive(nil))

	ok, err := Resolve(false, f, &bytes.Buffer{}).Confirm("go?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Resolve(true, nil, &bytes.Buffer{}).Confirm("go?")
	require.NoError(t, err)
	assert.True(t, ok)
}
