package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Prompter asks questions on a terminal, or on any reader when scripted
type Prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
	// Unmasked echoes secrets as they are typed
	Unmasked bool
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// Line reads one trimmed line
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Secret reads a password, masked with asterisks on a terminal
func (p *Prompter) Secret(prompt string) (string, error) {
	f, ok := p.in.(*os.File)
	if p.Unmasked || !ok || !term.IsTerminal(int(f.Fd())) {
		return p.Line(prompt)
	}
	fmt.Fprint(p.out, prompt)
	return p.readMasked(int(f.Fd()))
}

// Confirmed asks for a secret twice and requires both to match
func (p *Prompter) Confirmed(prompt string) (string, error) {
	first, err := p.Secret(fmt.Sprintf("%-18s", prompt+":"))
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("password cannot be empty")
	}
	second, err := p.Secret(fmt.Sprintf("%-18s", "Confirm password:"))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func (p *Prompter) readMasked(fd int) (string, error) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// fall back to hidden input
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		return string(secret), errors.Wrap(err, "read password")
	}
	defer term.Restore(fd, oldState)

	var secret []rune
	for {
		char, _, err := p.reader.ReadRune()
		if err != nil {
			fmt.Fprint(p.out, "\r\n")
			return string(secret), nil
		}

		switch char {
		case '\n', '\r':
			fmt.Fprint(p.out, "\r\n")
			return string(secret), nil
		case 127, 8:
			if len(secret) > 0 {
				secret = secret[:len(secret)-1]
				fmt.Fprint(p.out, "\b \b")
			}
		case 3: // Ctrl+C
			fmt.Fprint(p.out, "\r\n")
			return "", errors.New("interrupted")
		default:
			// reader passwords may contain accented letters
			if char >= 32 && char != 127 {
				secret = append(secret, char)
				fmt.Fprint(p.out, "*")
			}
		}
	}
}
