package htmlutil

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseDocument parses rendered markup into a queryable document.
func ParseDocument(markup string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(markup))
}

// CallArgs extracts the arguments of the first call to `fn` inside a script
// snippet, usually a `javascript:` href.
//
// ex. CallArgs("javascript:viewComments(7, 'D');", "viewComments") -> ["7", "D"]
func CallArgs(script, fn string) ([]string, bool) {
	_, rest, found := strings.Cut(script, fn+"(")
	if !found {
		return nil, false
	}
	inner, _, closed := strings.Cut(rest, ")")
	if !closed {
		return nil, false
	}

	var args []string
	for _, arg := range strings.Split(inner, ",") {
		arg = strings.TrimSpace(arg)
		arg = strings.Trim(arg, `'"`)
		args = append(args, arg)
	}
	return args, true
}

// IntCallArg is CallArgs but it only returns the argument at idx parsed as an int.
func IntCallArg(script, fn string, idx int) (int, bool) {
	args, ok := CallArgs(script, fn)
	if !ok || idx >= len(args) {
		return 0, false
	}
	value, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, false
	}
	return value, true
}
