package devenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gallwatch/lib/configutil"
)

const statePrefix = "<dev_state>"

var modName = regexp.MustCompile(`(?m)^module *([\w\-_]+)$`)

func isWorkspaceRoot(dir string) bool {
	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == "gallwatch"
}

// GetWorkspaceRoot walks up from the cwd to the directory holding the module's go.mod.
func GetWorkspaceRoot() (string, error) {
	current, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	for {
		if isWorkspaceRoot(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}

func GetStateDir() (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "dev", ".state"), nil
}

// GetStateConfig reads a json5 config (and its .local override) from the dev state directory.
func GetStateConfig[T any](name string) (T, error) {
	dir, err := GetStateDir()
	if err != nil {
		var out T
		return out, err
	}
	return configutil.ReadConfig[T](filepath.Join(dir, name))
}

// ResolvePath expands a leading <dev_state> into the dev state directory,
// creating the directory if needed. Other paths are returned as is.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, statePrefix) {
		return path, nil
	}

	dir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.TrimPrefix(path, statePrefix)), nil
}
