package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/iperka/paporg-sub001/internal/secrets"
)

// AuthEnv is the set of environment variables to append to a git
// subprocess's environment, plus a cleanup function that removes any
// temporary askpass script. Callers must call Cleanup on every exit
// path from the git command, typically via defer immediately after
// BuildAuthEnv returns.
type AuthEnv struct {
	EnvVars []string
	Cleanup func()
}

// noopCleanup satisfies AuthEnv.Cleanup when no temp file was created.
func noopCleanup() {}

// BuildAuthEnv resolves git credentials per auth.Type and, for
// GitAuthToken, writes a mode-0700 askpass script to a per-invocation
// random temp path. The script is removed by the returned Cleanup on
// every exit path.
func BuildAuthEnv(auth GitAuthSettings) (AuthEnv, error) {
	if auth.Type != GitAuthToken {
		return AuthEnv{Cleanup: noopCleanup}, nil
	}

	token, err := secrets.Resolve(auth.DirectToken, auth.TokenFile, auth.TokenEnvVar)
	if err != nil {
		return AuthEnv{}, fmt.Errorf("resolving git token: %w (configure token, tokenFile, or tokenEnvVar)", err)
	}

	escaped := shellEscapeToken(token)
	path := filepath.Join(os.TempDir(), fmt.Sprintf(".git-askpass-%s.sh", uuid.NewString()))
	script := "#!/bin/sh\necho '" + escaped + "'\n"

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0700)
	if err != nil {
		return AuthEnv{}, fmt.Errorf("creating askpass script: %w", err)
	}
	if _, err := f.WriteString(script); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return AuthEnv{}, fmt.Errorf("writing askpass script: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return AuthEnv{}, fmt.Errorf("closing askpass script: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			// Best-effort cleanup only; a failed removal is ignored and
			// leaves the script, token included, on disk.
		}
	}

	return AuthEnv{
		EnvVars: []string{"GIT_ASKPASS=" + path, "GIT_TERMINAL_PROMPT=0"},
		Cleanup: cleanup,
	}, nil
}

// shellEscapeToken escapes a token for safe use inside a single-quoted
// POSIX shell string.
func shellEscapeToken(token string) string {
	return strings.ReplaceAll(token, "'", `'\''`)
}

// RedactGitURL replaces any userinfo component of a git remote URL
// with "****" before it is ever logged or surfaced in an error.
func RedactGitURL(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	schemeEnd := idx + 3
	rest := rawURL[schemeEnd:]
	at := strings.Index(rest, "@")
	if at < 0 {
		return rawURL
	}
	return rawURL[:schemeEnd] + "****@" + rest[at+1:]
}
