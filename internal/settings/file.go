package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gallwatch/lib/textutil"
)

type Key string

const (
	KeyUrl       Key = "url"
	KeyRepeat    Key = "repeat"
	KeyInterval  Key = "interval"
	KeyThreshold Key = "threshold"
	KeyPayload   Key = "payload"
	KeyUsername  Key = "username"
	KeyPassword  Key = "password"
)

// Keys lists every known key in the order they are prompted and written.
var Keys = []Key{
	KeyUrl,
	KeyRepeat,
	KeyInterval,
	KeyThreshold,
	KeyPayload,
	KeyUsername,
	KeyPassword,
}

// Defaults used when a prompt is answered with nothing.
var Defaults = map[Key]string{
	KeyRepeat:    "true",
	KeyInterval:  "180",
	KeyThreshold: "100",
}

// Values is the raw content of a settings file. Unknown keys are kept so that
// rewriting the file does not lose them.
type Values map[Key]string

// Missing returns the known keys that have no value, in canonical order.
func (v Values) Missing() []Key {
	var out []Key
	for _, k := range Keys {
		if v[k] == "" {
			out = append(out, k)
		}
	}
	return out
}

// ParseValues reads `key value` lines. The value is everything after the first
// space, a line with no space sets the key to an empty value.
func ParseValues(r io.Reader) (Values, error) {
	values := Values{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := textutil.NormalizeToken(scanner.Text())
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		values[Key(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// WriteValues writes the known keys in canonical order followed by any unknown
// keys sorted by name.
func WriteValues(w io.Writer, values Values) error {
	bw := bufio.NewWriter(w)

	known := map[Key]bool{}
	for _, k := range Keys {
		known[k] = true
		_, err := fmt.Fprintf(bw, "%s %s\n", k, values[k])
		if err != nil {
			return err
		}
	}

	var extra []string
	for k := range values {
		if !known[k] {
			extra = append(extra, string(k))
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		_, err := fmt.Fprintf(bw, "%s %s\n", k, values[Key(k)])
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadFile reads a settings file, found is false when it does not exist.
func ReadFile(path string) (values Values, found bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Values{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	values, err = ParseValues(f)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", path, err)
	}
	return values, true, nil
}

// WriteFile replaces the settings file with values.
func WriteFile(path string, values Values) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = WriteValues(f, values)
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
