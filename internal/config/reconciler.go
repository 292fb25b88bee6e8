package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/iperka/paporg-sub001/internal/broadcast"
)

const (
	maxRetries     = 3
	retryBaseDelay = 2 * time.Second
)

// ReconcileResult summarizes one Reconcile call.
type ReconcileResult struct {
	Skipped       bool
	FilesChanged  int
	ConfigReloaded bool
}

// retryableError marks git errors worth retrying with backoff
// (network hiccups, timeouts) as opposed to permanent auth/path
// failures that should fail fast.
type retryableError struct{ err error }

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

func retryable(err error) *retryableError { return &retryableError{err: err} }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Reconciler wraps a git-backed working tree holding the config
// directory. reconcile() takes a private mutex so a concurrent call
// observes a skipped result rather than blocking; transient errors
// retry with exponential backoff (2s, 4s, 8s) up to maxRetries times.
type Reconciler struct {
	repoDir   string
	remote    string
	branch    string
	auth      GitAuthSettings
	bc        *broadcast.Broadcaster[ChangeEvent]
	log       *slog.Logger
	mu        sync.Mutex
}

// NewReconciler builds a Reconciler over a git working tree at
// repoDir tracking remote/branch.
func NewReconciler(repoDir string, git GitSettings, bc *broadcast.Broadcaster[ChangeEvent], log *slog.Logger) *Reconciler {
	return &Reconciler{repoDir: repoDir, remote: git.RemoteURL, branch: git.Branch, auth: git.Auth, bc: bc, log: log}
}

// Reconcile pulls the remote branch and publishes a Reloaded event if
// any file changed. A contended call (another reconcile already in
// flight) returns immediately with Skipped=true rather than blocking.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	if !r.mu.TryLock() {
		return ReconcileResult{Skipped: true}, nil
	}
	defer r.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		changed, err := r.pull(ctx)
		if err == nil {
			if changed > 0 {
				r.bc.Publish(ChangeEvent{ChangeType: ChangeReloaded, Path: r.repoDir})
			}
			return ReconcileResult{FilesChanged: changed, ConfigReloaded: changed > 0}, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxRetries {
			return ReconcileResult{}, err
		}
		delay := retryBaseDelay * time.Duration(1<<attempt)
		r.log.Warn("git reconcile failed, retrying", "attempt", attempt+1, "delay", delay, "error", redactErr(err))
		select {
		case <-ctx.Done():
			return ReconcileResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return ReconcileResult{}, lastErr
}

// pull runs `git pull` against the configured remote/branch and
// returns how many files the merge touched.
func (r *Reconciler) pull(ctx context.Context) (int, error) {
	auth, err := BuildAuthEnv(r.auth)
	if err != nil {
		return 0, fmt.Errorf("building git auth: %w", err)
	}
	defer auth.Cleanup()

	before, err := r.revParse(ctx)
	if err != nil {
		return 0, wrapGitErr(err)
	}

	cmd := exec.CommandContext(ctx, "git", "pull", "--ff-only", "origin", r.branch)
	cmd.Dir = r.repoDir
	cmd.Env = append(cmd.Environ(), auth.EnvVars...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, wrapGitErr(fmt.Errorf("%s: %w", redactOutput(string(out)), err))
	}

	after, err := r.revParse(ctx)
	if err != nil {
		return 0, wrapGitErr(err)
	}
	if before == after {
		return 0, nil
	}

	diffCmd := exec.CommandContext(ctx, "git", "diff", "--name-only", before, after)
	diffCmd.Dir = r.repoDir
	diffOut, err := diffCmd.CombinedOutput()
	if err != nil {
		return 0, wrapGitErr(fmt.Errorf("%s: %w", string(diffOut), err))
	}
	lines := strings.FieldsFunc(string(diffOut), func(r rune) bool { return r == '\n' })
	return len(lines), nil
}

func (r *Reconciler) revParse(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = r.repoDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// wrapGitErr classifies common transient conditions (DNS/network,
// timeout) as retryable; anything else (auth rejection, path issues)
// is treated as permanent.
func wrapGitErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "could not resolve host") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporary failure") {
		return retryable(err)
	}
	return err
}

func redactOutput(s string) string {
	return RedactGitURL(s)
}

func redactErr(err error) string {
	return RedactGitURL(err.Error())
}
