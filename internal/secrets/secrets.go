// Package secrets resolves credentials from one of three optional
// sources (a direct value, a file path, or an environment variable
// name), in that priority order, the same shared contract git auth
// and IMAP password/OAuth client-secret resolution both depend on.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSource is returned when direct, file, and env are all empty.
var ErrNoSource = fmt.Errorf("no secret source provided")

// Resolve picks the first non-empty argument among direct, file and
// envVar, in that order, and returns that source's value: direct
// itself, the contents of file (trimmed of trailing newlines), or the
// named environment variable. Later sources are not consulted, even
// when the chosen one yields an empty value or an error.
func Resolve(direct, file, envVar string) (string, error) {
	if direct != "" {
		return direct, nil
	}
	if file != "" {
		path, err := ExpandHome(file)
		if err != nil {
			return "", fmt.Errorf("expanding secret file path: %w", err)
		}
		// #nosec G304 -- path is operator-configured, not user input.
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading secret file %s: %w", path, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if envVar != "" {
		val, ok := os.LookupEnv(envVar)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", envVar)
		}
		return val, nil
	}
	return "", ErrNoSource
}

// ExpandHome expands a leading "~" or "~/" to the user's home
// directory, following HOME on Unix and USERPROFILE on Windows.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
