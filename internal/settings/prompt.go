package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var questions = map[Key]string{
	KeyUrl:       "thread url (ex. https://gall.dcinside.com/mgallery/board/view/?id=pokemontcgpocket&no=205860): ",
	KeyRepeat:    "keep watching after the first pass? (true/false): ",
	KeyInterval:  "seconds between passes (default: 180, minimum: 30): ",
	KeyThreshold: "minimum posts + comments of a user before writing to their guestbook (default: 100): ",
	KeyPayload:   "message to leave on guestbooks: ",
	KeyUsername:  "account id: ",
	KeyPassword:  "account password: ",
}

// Prompter asks for missing values on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) Prompter {
	return Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints the question for key and returns the trimmed answer, or the
// default when the answer is empty. Input ending without a newline is accepted.
func (p Prompter) Ask(key Key) (string, error) {
	question, ok := questions[key]
	if !ok {
		question = fmt.Sprintf("%s: ", key)
	}
	_, err := fmt.Fprint(p.out, question)
	if err != nil {
		return "", err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return Defaults[key], nil
	}
	return answer, nil
}
