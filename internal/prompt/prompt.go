// Package prompt implements line-oriented console prompting with
// validation and re-asking.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrClosed is returned when the input stream ends before a valid answer.
var ErrClosed = errors.New("prompt: input closed")

// Prompter asks questions on out and reads answers from in, line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// New returns a Prompter reading from in and writing prompts to out.
func New(in io.Reader, out io.Writer) *Prompter {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Prompter{in: s, out: out}
}

// Line prints label and returns the next input line with surrounding
// whitespace trimmed. An exhausted input stream yields ErrClosed.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrClosed
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// YesNo asks label until the answer reads as yes or no.
func (p *Prompter) YesNo(label string) (bool, error) {
	return Ask(p, label, parseYesNo, nil)
}

// Ask asks label until an answer passes both parse and accept, echoing
// each rejection before asking again. accept may be nil when parsing
// alone validates. Input errors end the loop immediately.
func Ask[T any](p *Prompter, label string, parse func(string) (T, error), accept func(T) error) (T, error) {
	var zero T
	for {
		line, err := p.Line(label)
		if err != nil {
			return zero, err
		}
		v, err := parse(line)
		if err != nil {
			fmt.Fprintf(p.out, "%v\n", err)
			continue
		}
		if accept != nil {
			if err := accept(v); err != nil {
				fmt.Fprintf(p.out, "%v\n", err)
				continue
			}
		}
		return v, nil
	}
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, errors.New("please answer y or n")
}
