package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// prompter asks questions on an interactive console.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// Line prints question and returns the next input line without its newline.
func (p *prompter) Line(question string) (string, error) {
	fmt.Fprint(p.out, question)
	s, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// YesNo repeats the question until the answer is Y or N.
func (p *prompter) YesNo(question string) (bool, error) {
	answer, err := p.Line(question)
	for {
		if err != nil {
			return false, err
		}
		switch strings.ToUpper(strings.TrimSpace(answer)) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
		answer, err = p.Line("Please enter Y or N: ")
	}
}
