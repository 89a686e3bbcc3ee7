package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Seams for tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompter reads answers from the command's input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// tty is set when the input is a terminal; secrets are then read
	// from it without echo.
	tty *os.File
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		p.tty = f
	}
	return p
}

// line prints label and reads one trimmed line. A partial line before EOF
// is returned as is.
func (p *prompter) line(label string) (string, error) {
	s, err := p.raw(label)
	return strings.TrimSpace(s), err
}

func (p *prompter) raw(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(s) > 0) {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// secret reads a password without echo. Piped input is read as a plain
// line.
func (p *prompter) secret(label string) (string, error) {
	if p.tty == nil {
		return p.raw(label)
	}
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	pw, err := readPassword(int(p.tty.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
