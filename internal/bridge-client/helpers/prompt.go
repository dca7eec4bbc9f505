package helpers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func promptLine(in io.Reader, out io.Writer, label, def string) string {
	if def != "" {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		_, _ = fmt.Fprintf(out, "%s: ", label)
	}

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return def
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// Confirm asks a y/N question; anything but y/yes declines.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	answer := promptLine(in, out, question+" (y/N)", "n")
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func PromptPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		ZeroBytes(pw)
		return nil, fmt.Errorf("password input failed: %w", err)
	}

	if len(pw) < 8 {
		ZeroBytes(pw)
		return nil, fmt.Errorf("password must be at least 8 characters long")
	}

	return pw, nil
}

func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
