package helpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	var out bytes.Buffer

	require.True(t, Confirm(strings.NewReader("y\n"), &out, "Switch network?"))
	require.True(t, Confirm(strings.NewReader("YES\n"), &out, "Switch network?"))
	require.False(t, Confirm(strings.NewReader("\n"), &out, "Switch network?"))
	require.False(t, Confirm(strings.NewReader(""), &out, "Switch network?"))
	require.False(t, Confirm(strings.NewReader("nope\n"), &out, "Switch network?"))
	require.Contains(t, out.String(), "Switch network? (y/N) [n]: ")
}

func TestPromptLineDefault(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, "def", promptLine(strings.NewReader("\n"), &out, "Label", "def"))
	require.Equal(t, "val", promptLine(strings.NewReader("  val \n"), &out, "Label", "def"))
	require.Equal(t, "val", promptLine(strings.NewReader("val"), &out, "Label", ""))
}

func TestZeroBytes(t *testing.T) {
	b := []byte("secret")
	ZeroBytes(b)
	require.Equal(t, make([]byte, 6), b)
}
