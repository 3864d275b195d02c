package output_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/trove/internal/ui/output"
)

func TestColorProfile_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfile())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, output.IsTerminal(&bytes.Buffer{}))
}

func TestNewForWriter_PlainWhenNotTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	out := output.NewForWriter(buf)

	_, err := out.WriteString(out.String("plain").Foreground(termenv.ANSIRed).String())
	assert.NoError(t, err)
	assert.Equal(t, "plain", buf.String())
}
