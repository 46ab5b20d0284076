package migrate

import (
	"bufio"
	"fmt"
	"io"
)

// Input tokens accepted at the review prompts. Anything else is an
// UnknownInputError and ends the process.
const (
	inputYes    = "yes"
	inputNo     = "no"
	inputSkip   = "skip"
	inputRemove = "remove"
	inputAbort  = "abort"
)

// Prompter displays a review prompt and blocks until the operator answers
// with a single whitespace-delimited token.
type Prompter interface {
	Prompt(message string) (string, error)
}

// ConsolePrompter reads answers from an interactive terminal.
type ConsolePrompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewConsolePrompter creates a prompter writing to out and reading tokens
// from in.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &ConsolePrompter{out: out, scanner: scanner}
}

func (p *ConsolePrompter) Prompt(message string) (string, error) {
	if _, err := fmt.Fprint(p.out, message); err != nil {
		return "", err
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}
