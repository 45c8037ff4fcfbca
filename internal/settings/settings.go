// Package settings resolves the user facing configuration: the key-value
// settings file (prompting for and persisting missing values) and the json5
// runtime options.
package settings

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/telemetry"

	"github.com/joho/godotenv"
)

const (
	report_settings_parse = "settings.parse"
	report_settings_env   = "settings.dotenv"
)

const (
	MinInterval = 30 * time.Second
	EnvPrefix   = "GALLWATCH_"
)

// Settings is the typed form of a settings file.
type Settings struct {
	Url       string
	Repeat    bool
	Interval  time.Duration
	Threshold int
	Payload   string
	Username  string
	Password  string
}

// LoadDotEnv loads .env into the process environment when it exists.
func LoadDotEnv(tel telemetry.API) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		tel.ReportWarning(report_settings_env, err)
	}
}

// EnvOverrides collects GALLWATCH_<KEY> values for every known key.
func EnvOverrides(lookup func(string) (string, bool)) Values {
	out := Values{}
	for _, k := range Keys {
		v, ok := lookup(EnvPrefix + strings.ToUpper(string(k)))
		if ok && strings.TrimSpace(v) != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

type Loader struct {
	path     string
	prompter Prompter
	out      io.Writer
	lookup   func(string) (string, bool)
	tel      telemetry.API
}

// NewLoader creates a loader for the settings file at path. lookup resolves
// environment overrides, nil disables them.
func NewLoader(path string, prompter Prompter, out io.Writer, lookup func(string) (string, bool), tel telemetry.API) Loader {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)

	if out == nil {
		out = io.Discard
	}
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return Loader{
		path:     path,
		prompter: prompter,
		out:      out,
		lookup:   lookup,
		tel:      telemetry.NewScopedAPI("settings", tel),
	}
}

// Load reads the settings file, prompts for every missing value that is not
// overridden by the environment, rewrites the file and returns the effective
// settings. Environment overrides are never written to the file.
func (l Loader) Load() (Settings, error) {
	values, found, err := ReadFile(l.path)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		fmt.Fprintln(l.out, "no settings file found, creating one.")
	}

	env := EnvOverrides(l.lookup)
	for _, k := range values.Missing() {
		if env[k] != "" {
			continue
		}
		answer, err := l.prompter.Ask(k)
		if err != nil {
			return Settings{}, fmt.Errorf("prompt %s: %w", k, err)
		}
		values[k] = answer
	}

	err = WriteFile(l.path, values)
	if err != nil {
		return Settings{}, err
	}
	fmt.Fprintln(l.out, "settings loaded.")

	effective := Values{}
	for k, v := range values {
		effective[k] = v
	}
	for k, v := range env {
		effective[k] = v
	}
	return l.Parse(effective), nil
}

// Parse converts raw values, numbers that do not parse fall back to their
// defaults and the interval is clamped to MinInterval.
func (l Loader) Parse(values Values) Settings {
	interval := l.parseInt(values, KeyInterval)
	threshold := l.parseInt(values, KeyThreshold)

	return Settings{
		Url:       values[KeyUrl],
		Repeat:    strings.EqualFold(strings.TrimSpace(values[KeyRepeat]), "true"),
		Interval:  max(time.Duration(interval)*time.Second, MinInterval),
		Threshold: threshold,
		Payload:   values[KeyPayload],
		Username:  values[KeyUsername],
		Password:  values[KeyPassword],
	}
}

func (l Loader) parseInt(values Values, key Key) int {
	raw := strings.TrimSpace(values[key])
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n
	}
	l.tel.ReportWarning(report_settings_parse, fmt.Errorf("%s: %w", key, err))
	n, _ = strconv.Atoi(Defaults[key])
	return n
}
