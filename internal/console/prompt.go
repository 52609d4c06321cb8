package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter reads one answer per line. At end of input every call returns
// io.EOF.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Raw prints label and returns the answer with only the line ending removed.
func (p *Prompter) Raw(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Ask is Raw with surrounding whitespace trimmed.
func (p *Prompter) Ask(label string) (string, error) {
	line, err := p.Raw(label)
	return strings.TrimSpace(line), err
}

// Confirm reports whether the answer is exactly "y". Surrounding spaces
// make it a no.
func (p *Prompter) Confirm(label string) (bool, error) {
	ans, err := p.Raw(label)
	if err != nil {
		return false, err
	}
	return ans == "y", nil
}

func (p *Prompter) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Prompter) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}
